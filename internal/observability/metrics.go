package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_http_requests_total",
			Help: "Total number of HTTP requests processed by the collaboration service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collab_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	likesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_likes_total",
			Help: "Like submissions by outcome (pending, matched, duplicate, error).",
		},
		[]string{"outcome"},
	)
	conversationsBootstrappedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_conversations_bootstrapped_total",
			Help: "Conversations stood up for mutual matches, by whether an existing one was reused.",
		},
		[]string{"reused"},
	)
	messagesPostedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collab_messages_posted_total",
			Help: "Total number of messages posted by users.",
		},
	)
	txRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collab_tx_retries_total",
			Help: "Total number of transactions retried after a transient datastore failure.",
		},
	)
	eventPublishErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_event_publish_errors_total",
			Help: "Total number of domain event publish errors.",
		},
		[]string{"driver"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		likesTotal,
		conversationsBootstrappedTotal,
		messagesPostedTotal,
		txRetriesTotal,
		eventPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncLike(outcome string) {
	likesTotal.WithLabelValues(outcome).Inc()
}

func IncBootstrap(reused bool) {
	conversationsBootstrappedTotal.WithLabelValues(strconv.FormatBool(reused)).Inc()
}

func IncMessagePosted() {
	messagesPostedTotal.Inc()
}

func IncTxRetry() {
	txRetriesTotal.Inc()
}

func IncEventPublishError(driver string) {
	eventPublishErrorsTotal.WithLabelValues(driver).Inc()
}
