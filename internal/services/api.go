// API service for the wet-litter analysis endpoints
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/shared"
)

const defaultBaseURL = "http://localhost:8000"

// APIService provides methods for making HTTP requests to the analysis service.
type APIService struct {
	baseURL    string
	loginPath  string
	uploadPath string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewAPIService creates a new API service from the [api] config section.
//
// When client is nil, a client with the configured timeout is used.
func NewAPIService(cfg shared.APIConfig, client *http.Client) *APIService {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &APIService{
		baseURL:    baseURL,
		loginPath:  pathOr(cfg.LoginPath, "/auth/login"),
		uploadPath: pathOr(cfg.UploadPath, "/imageprocessing/manualupload"),
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// BaseURL returns the service root.
func (a *APIService) BaseURL() string { return a.baseURL }

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return a.do(ctx, req)
}

// Health probes GET / and returns the service's status message.
func (a *APIService) Health(ctx context.Context) (string, error) {
	resp, err := a.Get(ctx, "/")
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", &ResponseError{Response: resp}
	}

	var body HealthResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}
	return body.Message, nil
}

// Login exchanges a username and password for an access token using the OAuth2 password grant.
//
// A non-2xx reply is returned as a [*ResponseError] carrying the status and body.
func (a *APIService) Login(ctx context.Context, username, password string) (*oauth2.Token, error) {
	if err := a.wait(ctx); err != nil {
		return nil, err
	}

	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  a.baseURL + a.loginPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	token, err := conf.PasswordCredentialsToken(ctx, username, password)
	if err == nil {
		return token, nil
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		resp := &APIResponse{
			StatusCode: retrieveErr.Response.StatusCode,
			Headers:    retrieveErr.Response.Header,
			Body:       retrieveErr.Body,
		}
		decodeJSON(resp)
		return nil, &ResponseError{Response: resp}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
}

// Upload posts an image as the multipart "file" field with a bearer token.
//
// Any HTTP reply, whatever its status, is returned as an [APIResponse]. The error is
// reserved for requests that produced no response.
func (a *APIService) Upload(ctx context.Context, token string, upload models.UploadRequest) (*APIResponse, error) {
	body, contentType, err := multipartBody(upload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+a.uploadPath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)

	return a.do(ctx, req)
}

func (a *APIService) do(ctx context.Context, req *http.Request) (*APIResponse, error) {
	if err := a.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrServiceUnavailable, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}
	decodeJSON(apiResp)

	return apiResp, nil
}

func (a *APIService) wait(ctx context.Context) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	return nil
}

func decodeJSON(resp *APIResponse) {
	var jsonData any
	if err := json.Unmarshal(resp.Body, &jsonData); err == nil {
		resp.IsJSON = true
		resp.JSONData = jsonData
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func multipartBody(upload models.UploadRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name := upload.FileName
	if name == "" {
		name = "upload"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

func pathOr(path, fallback string) string {
	if path == "" {
		return fallback
	}
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}
