package backend

import (
	"context"
	"encoding/json"

	"yt-tutor-console/internal/jobs"
)

// Job poller sources, one per long-running feature. Each maps the service's
// wire statuses onto the tracker's states; anything unrecognized is reported
// as unknown so the poller takes its fallback path instead of guessing.

// FormattingSource tracks transcript formatting jobs.
type FormattingSource struct {
	Client *Client
}

func (s FormattingSource) Check(ctx context.Context, key jobs.Key) (jobs.Report, error) {
	resp, err := s.Client.FormattingStatus(ctx, key.VideoID)
	if err != nil {
		return jobs.Report{}, err
	}
	switch resp.Status {
	case "completed":
		return completedReport(resp, json.RawMessage(mustJSON(resp.FormattedTranscript))), nil
	case "formatting", "not_found":
		return runningReport(resp, resp.CurrentChunk, resp.TotalChunks), nil
	case "failed":
		return failedReport(resp), nil
	}
	return jobs.Report{Known: false}, nil
}

// FetchResult asks for the formatted transcript directly, bypassing the
// status record.
func (s FormattingSource) FetchResult(ctx context.Context, key jobs.Key) (jobs.Report, error) {
	resp, err := s.Client.FormattedTranscript(ctx, key.VideoID)
	if err != nil {
		return jobs.Report{}, err
	}
	if resp.Status == "completed" && resp.FormattedTranscript != "" {
		return completedReport(resp, json.RawMessage(mustJSON(resp.FormattedTranscript))), nil
	}
	return jobs.Report{Known: false}, nil
}

// UploadSource tracks server-side processing of an uploaded file. A missing
// record here means the upload was rolled back, not that it is pending.
type UploadSource struct {
	Client *Client
}

func (s UploadSource) Check(ctx context.Context, key jobs.Key) (jobs.Report, error) {
	resp, err := s.Client.UploadStatus(ctx, key.VideoID)
	if err != nil {
		return jobs.Report{}, err
	}
	switch resp.Status {
	case "completed":
		return completedReport(resp, nil), nil
	case "failed":
		return failedReport(resp), nil
	case "not_found":
		return jobs.Report{
			Status: jobs.StatusFailed, Known: true,
			ErrorMessage: "upload failed - try a shorter video",
		}, nil
	case "":
	default:
		// uploading / processing / transcribing and friends all mean the
		// job is alive.
		return runningReport(resp, resp.CurrentStep, resp.TotalSteps), nil
	}
	return jobs.Report{Known: false}, nil
}

func (s UploadSource) FetchResult(ctx context.Context, key jobs.Key) (jobs.Report, error) {
	return s.Check(ctx, key)
}

// QuizSource tracks quiz generation.
type QuizSource struct {
	Client *Client
}

func (s QuizSource) Check(ctx context.Context, key jobs.Key) (jobs.Report, error) {
	resp, err := s.Client.QuizStatus(ctx, key.VideoID)
	if err != nil {
		return jobs.Report{}, err
	}
	switch resp.Status {
	case "completed":
		return completedReport(resp, resp.Quiz), nil
	case "generating", "not_found":
		return runningReport(resp, 0, 0), nil
	case "failed":
		return failedReport(resp), nil
	}
	return jobs.Report{Known: false}, nil
}

func (s QuizSource) FetchResult(ctx context.Context, key jobs.Key) (jobs.Report, error) {
	resp, err := s.Client.QuizStatus(ctx, key.VideoID)
	if err != nil {
		return jobs.Report{}, err
	}
	if resp.Status == "completed" && len(resp.Quiz) > 0 {
		return completedReport(resp, resp.Quiz), nil
	}
	return jobs.Report{Known: false}, nil
}

// DecodeFormattedTranscript unpacks a formatting job's result payload.
func DecodeFormattedTranscript(raw json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", err
	}
	return text, nil
}

// DecodeQuiz unpacks a quiz job's result payload.
func DecodeQuiz(raw json.RawMessage) ([]QuizQuestion, error) {
	var questions []QuizQuestion
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func completedReport(resp StatusResponse, result json.RawMessage) jobs.Report {
	r := jobs.Report{Status: jobs.StatusCompleted, Known: true, Result: result}
	applyProgress(&r, resp)
	return r
}

func runningReport(resp StatusResponse, current, total int) jobs.Report {
	r := jobs.Report{Status: jobs.StatusRunning, Known: true}
	applyProgress(&r, resp)
	r.CurrentUnit = current
	r.TotalUnits = total
	return r
}

func failedReport(resp StatusResponse) jobs.Report {
	msg := resp.Error
	if msg == "" {
		msg = resp.Message
	}
	return jobs.Report{Status: jobs.StatusFailed, Known: true, ErrorMessage: msg}
}

func applyProgress(r *jobs.Report, resp StatusResponse) {
	if resp.Progress == nil {
		return
	}
	r.HasProgress = true
	r.ProgressPercent = *resp.Progress
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Strings and the wire structs here always marshal.
		panic(err)
	}
	return data
}
