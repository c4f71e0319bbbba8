// Package function exposes the summarizer as a Cloud Functions HTTP target.
// Deploy with entry point "Summarize"; the API key is read from
// OPENAI_API_KEY like the standalone server.
package function

import (
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/nijaru/yt-summary/apperrors"
	"github.com/nijaru/yt-summary/config"
	"github.com/nijaru/yt-summary/handlers"
	"github.com/nijaru/yt-summary/logger"
	"github.com/nijaru/yt-summary/utils"
	"github.com/sirupsen/logrus"
)

var (
	once    sync.Once
	router  http.Handler
	initErr error
)

func init() {
	functions.HTTP("Summarize", Summarize)
}

// Summarize builds the router on first use so configuration errors surface
// as a 500 response instead of a crashed instance.
func Summarize(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		router, initErr = newRouter()
	})
	if initErr != nil {
		utils.HandleError(w, apperrors.Internal("function.Summarize", initErr, "function is misconfigured"))
		return
	}
	router.ServeHTTP(w, r)
}

func newRouter() (http.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Error("Invalid configuration")
		return nil, err
	}
	// Instances live for the lifetime of the container; nothing to close.
	if _, err := logger.Setup(cfg); err != nil {
		return nil, err
	}

	h, _, err := handlers.NewRouter(cfg)
	if err != nil {
		logrus.WithError(err).Error("Failed to build handlers")
		return nil, err
	}
	return h, nil
}
