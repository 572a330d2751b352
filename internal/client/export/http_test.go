package export

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLSink(t *testing.T) {
	var got []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	sink := URLSink{URL: ts.URL + "/upload?sig=1", Client: ts.Client()}
	loc, err := sink.Write(context.Background(), "ignored.json", []byte(`{"balance":1}`))
	require.NoError(t, err)
	assert.Equal(t, sink.URL, loc)
	assert.JSONEq(t, `{"balance":1}`, string(got))
}

func TestURLSink_Failure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := URLSink{URL: ts.URL, Client: ts.Client()}.Write(context.Background(), "x", []byte("{}"))
	assert.ErrorContains(t, err, "failed to upload export")
}
