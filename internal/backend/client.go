// Package backend is the HTTP client for the video-tutor service: video
// metadata, long-running job status endpoints, and the Q&A query endpoint.
// The service itself is a black box; this package only makes talking to it
// reliable and classifies its failures.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 60 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// VideoInfo is the metadata the info endpoint returns for a video.
type VideoInfo struct {
	VideoID    string `json:"video_id"`
	Title      string `json:"title"`
	Transcript string `json:"transcript"`
}

// StatusResponse is the shared wire shape of every job status endpoint.
// Progress fields are optional; Progress distinguishes absent from zero.
type StatusResponse struct {
	Status              string          `json:"status"`
	Progress            *int            `json:"progress,omitempty"`
	CurrentChunk        int             `json:"current_chunk,omitempty"`
	TotalChunks         int             `json:"total_chunks,omitempty"`
	CurrentStep         int             `json:"current_step,omitempty"`
	TotalSteps          int             `json:"total_steps,omitempty"`
	Message             string          `json:"message,omitempty"`
	FormattedTranscript string          `json:"formatted_transcript,omitempty"`
	Quiz                json.RawMessage `json:"quiz,omitempty"`
	Error               string          `json:"error,omitempty"`
}

type QueryRequest struct {
	VideoID      string  `json:"video_id"`
	Query        string  `json:"query"`
	Timestamp    float64 `json:"timestamp"`
	IsImageQuery bool    `json:"is_image_query"`
}

type QueryResponse struct {
	Response      string `json:"response"`
	IsDownloading bool   `json:"is_downloading"`
}

// QuizQuestion is one generated question.
type QuizQuestion struct {
	ID         int      `json:"id"`
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	Answer     string   `json:"answer"`
	Difficulty string   `json:"difficulty"`
}

// FetchVideoInfo resolves a video URL or id to its metadata and transcript.
func (c *Client) FetchVideoInfo(ctx context.Context, videoURL string) (VideoInfo, error) {
	var info VideoInfo
	err := c.doJSON(ctx, http.MethodPost, "/api/youtube/info", map[string]string{"url": videoURL}, &info)
	return info, err
}

func (c *Client) FormattingStatus(ctx context.Context, videoID string) (StatusResponse, error) {
	var resp StatusResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/youtube/formatting-status/"+url.PathEscape(videoID), nil, &resp)
	return resp, err
}

func (c *Client) FormattedTranscript(ctx context.Context, videoID string) (StatusResponse, error) {
	var resp StatusResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/youtube/formatted-transcript/"+url.PathEscape(videoID), nil, &resp)
	return resp, err
}

func (c *Client) UploadStatus(ctx context.Context, videoID string) (StatusResponse, error) {
	var resp StatusResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/user-videos/upload-status/"+url.PathEscape(videoID), nil, &resp)
	return resp, err
}

// UploadVideo streams a local file to the service and returns the video id
// assigned to the upload job.
func (c *Client) UploadVideo(ctx context.Context, filename string, file io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read upload file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/user-videos/upload", &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		VideoID string `json:"video_id"`
	}
	if err := c.execute(req, &resp); err != nil {
		return "", err
	}
	if resp.VideoID == "" {
		return "", fmt.Errorf("upload response missing video_id")
	}
	return resp.VideoID, nil
}

// GenerateQuiz asks the service to start quiz generation for a video.
func (c *Client) GenerateQuiz(ctx context.Context, videoID string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/quiz/generate", map[string]string{"video_id": videoID}, nil)
}

func (c *Client) QuizStatus(ctx context.Context, videoID string) (StatusResponse, error) {
	var resp StatusResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/quiz/status/"+url.PathEscape(videoID), nil, &resp)
	return resp, err
}

// Query submits a question about the video at a playback timestamp.
func (c *Client) Query(ctx context.Context, q QueryRequest) (QueryResponse, error) {
	var resp QueryResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/query/video", q, &resp)
	return resp, err
}

// Ping checks the service root; used by preflight checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/", nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request for %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.execute(req, out)
}

func (c *Client) execute(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &ServerError{StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// readDetail extracts the service's error message; it rejects with
// {"detail": "..."} on both validation and processing failures.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Detail
}
