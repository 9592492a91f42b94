package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID("p-", 9)
	assert.Len(t, id, 11)
	assert.True(t, strings.HasPrefix(id, "p-"))
	assert.Regexp(t, `^p-[a-z0-9]{9}$`, id)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "student@gla.ac.in", NormalizeEmail("  Student@GLA.ac.in "))
}

func TestSendResponseEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	SendResponse(rec, http.StatusConflict, nil, "Email already registered.", errors.New("email taken"))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, http.StatusConflict, body["status"])
	assert.Equal(t, "Email already registered.", body["message"])
	assert.Equal(t, "email taken", body["error"])
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Address string `json:"address"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"address":"Hostel 4","tip":5}`))
	assert.Error(t, DecodeJSON(r, &dst))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"address":"Hostel 4"}`))
	require.NoError(t, DecodeJSON(r, &dst))
	assert.Equal(t, "Hostel 4", dst.Address)
}
