package telephony

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"voice-orchestrator/internal/calls"
	"voice-orchestrator/internal/metrics"
	"voice-orchestrator/internal/routing"
	"voice-orchestrator/pkg/logger"

	"github.com/gin-gonic/gin"
)

// maxBodyBytes bounds a call notification. Real ones are well under 4KB.
const maxBodyBytes = 64 << 10

const healthTimeout = 3 * time.Second

var errNotConfigured = errors.New("telephony: call handler not configured")

// CallWebhookHandler turns call notifications into join/reject answers.
//
// No business logic here: it verifies, parses, delegates to Calls and
// renders the result.
type CallWebhookHandler struct {
	Calls  CallHandler
	Health PlatformHealth

	// Secret enables signature verification when non-empty.
	Secret string
	// CallTimeout bounds provisioning for one call.
	CallTimeout time.Duration

	// Reported by the health endpoint.
	LiveKitURL string
	AgentName  string

	Now func() time.Time
}

// Register mounts POST, GET and OPTIONS on path.
func (h CallWebhookHandler) Register(r gin.IRoutes, path string) {
	r.POST(path, h.HandleCall)
	r.GET(path, h.HandleHealth)
	r.OPTIONS(path, h.HandlePreflight)
}

func (h CallWebhookHandler) HandleCall(c *gin.Context) {
	log := logger.FromGin(c)
	setCORS(c)

	if h.Calls == nil {
		h.reject(c, calls.Classify(errNotConfigured))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Warn("call webhook read failed", "err", err)
		h.reject(c, calls.Classify(calls.ErrValidation))
		return
	}

	if err := VerifySignature(body, c.GetHeader(SignatureHeader), h.Secret); err != nil {
		log.Warn("call webhook signature rejected", "client_ip", c.ClientIP(), "err", err)
		h.reject(c, calls.Classify(err))
		return
	}

	req, err := ParseCallRequest(body)
	if err != nil {
		log.Warn("call webhook parse failed", "err", err)
		h.reject(c, calls.Classify(err))
		return
	}

	ctx := routing.WithClientIP(c.Request.Context(), c.ClientIP())
	if h.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.CallTimeout)
		defer cancel()
	}

	log.Info("inbound call", slog.String("caller", req.From), slog.String("callee", req.To), slog.String("call_id", req.CallID))

	acc, err := h.Calls.Handle(ctx, req)
	if err != nil {
		rej := calls.Classify(err)
		if rej.StatusCode == http.StatusInternalServerError {
			log.Error("call failed", "call_id", req.CallID, "err", err)
		} else {
			log.Info("call rejected", "call_id", req.CallID, "reason", rej.Reason, "err", err)
		}
		h.reject(c, rej)
		return
	}

	metrics.CallsTotal.WithLabelValues("connected").Inc()
	c.JSON(http.StatusOK, JoinRoomResponse{JoinRoom: acc})
}

func (h CallWebhookHandler) reject(c *gin.Context, rej calls.Rejection) {
	metrics.CallsTotal.WithLabelValues(rej.Result()).Inc()
	c.AbortWithStatusJSON(rej.StatusCode, newReject(rej))
}

// HandleHealth probes the platform. It never touches the call path.
func (h CallWebhookHandler) HandleHealth(c *gin.Context) {
	setCORS(c)
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	res := HealthResponse{
		Timestamp: now().UTC().Format(time.RFC3339),
		LiveKit:   LiveKitState{URL: h.LiveKitURL, Agent: h.AgentName},
	}

	if h.Health == nil {
		res.Status = "unhealthy"
		res.Error = "platform client not configured"
		c.JSON(http.StatusServiceUnavailable, res)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	n, err := h.Health.HealthCheck(ctx)
	if err != nil {
		logger.FromGin(c).Warn("platform health check failed", "err", err)
		res.Status = "unhealthy"
		res.Error = "platform unreachable"
		c.JSON(http.StatusServiceUnavailable, res)
		return
	}

	res.Status = "healthy"
	res.LiveKit.Connected = true
	res.RoomsCount = n
	c.JSON(http.StatusOK, res)
}

func (h CallWebhookHandler) HandlePreflight(c *gin.Context) {
	setCORS(c)
	c.Status(http.StatusOK)
}

func setCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, "+SignatureHeader)
}
