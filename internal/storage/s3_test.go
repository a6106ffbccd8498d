package storage

import (
	"errors"
	"net/http"
	"testing"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/snappy-loop/moodstory/internal/config"
)

func TestJoinPublicURL(t *testing.T) {
	tests := []struct {
		base, key, want string
	}{
		{"", "stories/a/images/scene_0.jpg", ""},
		{"http://localhost:9000/moodstory", "stories/a.jpg", "http://localhost:9000/moodstory/stories/a.jpg"},
		{"http://localhost:9000/moodstory/", "/stories/a.jpg", "http://localhost:9000/moodstory/stories/a.jpg"},
	}
	for _, tt := range tests {
		if got := joinPublicURL(tt.base, tt.key); got != tt.want {
			t.Errorf("joinPublicURL(%q, %q) = %q, want %q", tt.base, tt.key, got, tt.want)
		}
	}
}

func TestNewClient_RequiresBucket(t *testing.T) {
	if _, err := NewClient(&config.Config{S3Region: "us-east-1"}); err == nil {
		t.Error("expected error without bucket")
	}
}

func responseError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New("api error"),
		},
	}
}

func TestClassify(t *testing.T) {
	if err := classify(responseError(http.StatusForbidden)); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("403: %v", err)
	}
	if err := classify(responseError(http.StatusServiceUnavailable)); errors.Is(err, ErrAccessDenied) {
		t.Errorf("503 classified as access denied: %v", err)
	}
	if err := classify(errors.New("dial tcp: connection refused")); errors.Is(err, ErrAccessDenied) {
		t.Errorf("network error classified as access denied: %v", err)
	}
}
