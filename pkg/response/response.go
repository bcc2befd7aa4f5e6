// path: pkg/response/response.go
package response

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/techappsUT/social-scheduler/internal/logging"
)

// log is package-level so httpapi handlers can call response.JSON/Error
// without threading a logger through every call site; SetLogger installs
// the process-wide logger once in main, the way the teacher's handlers
// assumed a package-level log.Logger.
var log logging.Logger = logging.NewNop()

func SetLogger(l logging.Logger) { log = l }

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("encode json response", zap.Error(err))
	}
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string, err error) {
	errorMsg := message
	if err != nil {
		log.Warn("api error", zap.String("message", message), zap.Error(err))
		errorMsg = err.Error()
	}

	JSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: errorMsg,
		Code:    status,
	})
}

// Success writes a success JSON response
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}
