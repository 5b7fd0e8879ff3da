package cloudinary

import (
	"bytes"
	"context"
	"log"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/polimarket-api/internal/config"
)

func TestSignUploadParams(t *testing.T) {
	cfg := &config.Config{CloudinaryConfig: config.CloudinaryConfig{
		CloudName:    "demo",
		APIKey:       "key",
		APISecret:    "secret",
		UploadPreset: "preset",
		UploadFolder: "polimarket/products",
	}}

	s, err := NewCloudinaryService(cfg)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	params, err := s.SignUploadParams()
	require.NoError(t, err)

	expected := url.Values{}
	expected.Set("timestamp", "1700000000")
	expected.Set("folder", "polimarket/products")
	signature, err := api.SignParameters(expected, "secret")
	require.NoError(t, err)

	assert.Equal(t, "1700000000", params["timestamp"])
	assert.Equal(t, signature, params["signature"])
	assert.Equal(t, "key", params["api_key"])
	assert.Equal(t, "demo", params["cloud_name"])
	assert.NotContains(t, params, "api_secret")
}

func TestDisabledUploads(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	s, err := NewCloudinaryService(&config.Config{})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(logs.String(), "Cloudinary не настроен"))

	_, err = s.SignUploadParams()
	require.ErrorIs(t, err, ErrUploadsDisabled)

	_, err = s.UploadImage(context.Background(), bytes.NewReader([]byte("img")), "a.png")
	require.ErrorIs(t, err, ErrUploadsDisabled)
}
