package utils

import (
	"encoding/json"
	"net/http"

	"github.com/zhouzirui/convo-eval/internal/observability"
)

// MaxBodyBytes caps request bodies accepted by the JSON endpoints.
const MaxBodyBytes = 8 << 20

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.WithComponent("http").Warnf("failed to encode response: %v", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// LimitBody 限制请求体大小
func LimitBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
}
