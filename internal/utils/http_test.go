package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

func servePathID(t *testing.T, path string) (string, error) {
	t.Helper()
	var (
		id  string
		err error
	)
	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, "/api/where/arrivals-for-stop/:id", func(w http.ResponseWriter, r *http.Request) {
		id, err = PathID(r, "id")
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	return id, err
}

func TestPathID(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{name: "plain id", path: "/api/where/arrivals-for-stop/S1", want: "S1"},
		{name: "json suffix is trimmed", path: "/api/where/arrivals-for-stop/S1.json", want: "S1"},
		{name: "only the final suffix is trimmed", path: "/api/where/arrivals-for-stop/S1.json.json", want: "S1.json"},
		{name: "agency prefixed id", path: "/api/where/arrivals-for-stop/1:S1.json", want: "1:S1"},
		{name: "suffix alone leaves nothing", path: "/api/where/arrivals-for-stop/.json", wantErr: ErrEmptyID},
		{name: "encoded quote", path: "/api/where/arrivals-for-stop/S1%27", wantErr: ErrIDInvalidCharset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := servePathID(t, tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
