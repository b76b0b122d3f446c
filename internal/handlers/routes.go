package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the authenticated collaboration and messaging API.
func RegisterRoutes(router gin.IRoutes, authMiddleware gin.HandlerFunc, collaborators *CollaboratorHandler, messages *MessageHandler) {
	router.POST("/collaborators", authMiddleware, collaborators.Like)
	router.DELETE("/collaborators", authMiddleware, collaborators.Unlike)
	router.GET("/collaborators", authMiddleware, collaborators.List)

	router.GET("/messages", authMiddleware, messages.Get)
	router.POST("/messages", authMiddleware, messages.Post)
	router.POST("/messages/read", authMiddleware, messages.MarkRead)
}
