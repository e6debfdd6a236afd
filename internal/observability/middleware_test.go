package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/danmuck/peerboard/internal/testutil/testlog"
)

func TestRequestObserverRecordsAndLogs(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	r := gin.New()
	r.Use(RequestObserver("obs-test", logger, "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/todos/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("obs-test", "GET", "/todos/:id", "404"))
	for _, path := range []string{"/health", "/todos/abc", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := testutil.ToFloat64(httpRequests.WithLabelValues("obs-test", "GET", "/todos/:id", "404"))
	if got != before+1 {
		t.Fatalf("request counter got=%v want=%v", got, before+1)
	}
	if testutil.ToFloat64(httpRequests.WithLabelValues("obs-test", "GET", "unmatched", "404")) < 1 {
		t.Fatalf("expected unmatched route to be recorded")
	}

	out := buf.String()
	if strings.Contains(out, `"path":"/health"`) {
		t.Fatalf("quiet path logged above trace: %s", out)
	}
	if !strings.Contains(out, `"path":"/todos/:id"`) || !strings.Contains(out, `"level":"warn"`) {
		t.Fatalf("expected warn log for 404 route: %s", out)
	}
}
