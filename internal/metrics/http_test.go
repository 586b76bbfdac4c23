package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "report route",
			path: "/api/reports/6f1c2a9e-8b43-4f1d-9a2e-3c5d7e9f1b2a",
			want: "/api/reports/{id}",
		},
		{
			name: "nested vehicle route",
			path: "/api/vehicles/6f1c2a9e-8b43-4f1d-9a2e-3c5d7e9f1b2a/maintenance/upcoming",
			want: "/api/vehicles/{id}/maintenance/upcoming",
		},
		{
			name: "no uuid",
			path: "/api/reports",
			want: "/api/reports",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.path))
		})
	}
}

func TestStatusRecorderCapturesFirstStatus(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	rec.WriteHeader(http.StatusCreated)
	rec.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusCreated, rec.status)
}

func TestStatusRecorderDefaultsToOK(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	_, err := rec.Write([]byte("ok"))

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.status)
}
