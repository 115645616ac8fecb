package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/resumable/uploadkit/internal/authheader"
	"github.com/resumable/uploadkit/internal/chunkio"
	"github.com/resumable/uploadkit/internal/httpclient"
	"github.com/resumable/uploadkit/internal/uploaderr"
)

// Manager creates, resumes, and polls upload sessions against a single
// remote endpoint family.
type Manager struct {
	HTTP    *httpclient.Client
	Timeout time.Duration

	// BootstrapRetries bounds the transport-level retry applied to
	// create_session, resume_session, get_progress, and authenticate via
	// httpclient.WithRetry. This is separate from C6/C8's chunk-level
	// recovery policy, which needs to react to SessionNotFound rather than
	// blindly retry.
	BootstrapRetries int

	// Sleep is forwarded to httpclient.WithRetry between bootstrap retry
	// attempts. Tests override it to avoid real delays.
	Sleep httpclient.Sleep
}

const defaultBootstrapRetries = 2

// NewManager constructs a Manager over an existing HTTP adapter.
func NewManager(client *httpclient.Client, timeout time.Duration) *Manager {
	return &Manager{HTTP: client, Timeout: timeout, BootstrapRetries: defaultBootstrapRetries}
}

// FileInfo describes the local file being uploaded, as required by the
// create_session request body.
type FileInfo struct {
	Name     string
	Size     int64
	MimeType string
}

type createSessionRequest struct {
	FileName     string `json:"fileName"`
	FileSize     int64  `json:"fileSize"`
	FileChecksum string `json:"fileChecksum"`
	ChunkSize    int64  `json:"chunkSize"`
	MimeType     string `json:"mimeType"`
}

type createSessionResponse struct {
	SessionID string         `json:"sessionId"`
	ExpiresAt string         `json:"expiresAt"`
	Metadata  map[string]any `json:"metadata"`
	AuthToken string         `json:"authToken"`
	ResumeURL string         `json:"resumeUrl"`
}

// Create POSTs a session-creation request to endpoint and returns the
// resulting Record. Non-2xx is SessionCreationFailed (retryable); a body
// that fails to parse is ParseError (non-retryable); network/timeout
// failures from the transport propagate as-is (already correctly
// classified by httpclient).
func (m *Manager) Create(
	ctx context.Context, endpoint string, file FileInfo, checksum string, chunkSize int64, cred *authheader.Credential,
) (*Record, error) {
	body, err := json.Marshal(createSessionRequest{
		FileName:     file.Name,
		FileSize:     file.Size,
		FileChecksum: checksum,
		ChunkSize:    chunkSize,
		MimeType:     file.MimeType,
	})
	if err != nil {
		return nil, uploaderr.New(uploaderr.CodeConfigError, false, fmt.Sprintf("encoding session request: %v", err), nil)
	}

	headers := authheader.Headers(cred)
	headers.Set("Content-Type", "application/json")
	headers.Set("X-Upload-Idempotency-Key", uuid.NewString())

	resp, err := m.HTTP.WithRetry(ctx, httpclient.Request{
		Method: http.MethodPost, URL: endpoint, Headers: headers, Body: body, Timeout: m.Timeout,
	}, m.BootstrapRetries, m.Sleep)
	if err != nil {
		return nil, err // already a classified *uploaderr.Error (NetworkError/Timeout)
	}

	if !resp.OK() {
		return nil, uploaderr.New(uploaderr.CodeSessionCreationFailed, true,
			fmt.Sprintf("create_session: HTTP %d", resp.StatusCode),
			map[string]any{"statusCode": resp.StatusCode, "body": string(resp.Body)})
	}

	var csr createSessionResponse
	if err := json.Unmarshal(resp.Body, &csr); err != nil {
		return nil, uploaderr.New(uploaderr.CodeParseError, false,
			fmt.Sprintf("parsing create_session response: %v", err), nil)
	}

	rec := &Record{
		SessionID:   csr.SessionID,
		Endpoint:    endpoint,
		TotalSize:   file.Size,
		ChunkSize:   chunkSize,
		TotalChunks: chunkio.TotalChunks(file.Size, chunkSize),
		Digest:      checksum,
		Metadata:    csr.Metadata,
		Token:       csr.AuthToken,
		ResumeURL:   csr.ResumeURL,
		CreatedAt:   time.Now(),
	}

	if csr.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, csr.ExpiresAt); err == nil {
			rec.ExpiresAt = &t
		}
	}

	return rec, nil
}

type resumeSessionResponse struct {
	createSessionResponse

	TotalSize    int64  `json:"totalSize"`
	TotalChunks  int64  `json:"totalChunks"`
	ChunkSize    int64  `json:"chunkSize"`
	UploadedSize int64  `json:"uploadedSize"`
	CreatedAt    string `json:"createdAt"`
	Checksum     string `json:"checksum"`
}

// Resume re-hydrates a session from the server by session ID. 404 is
// SessionNotFound (non-retryable — when Resume itself returns it, the
// orchestrator fails the run rather than creating a new session); any
// other non-2xx is ResumeFailed (retryable).
func (m *Manager) Resume(ctx context.Context, sessionID, endpoint string, cred *authheader.Credential) (*Record, error) {
	url := endpoint + "/" + sessionID

	resp, err := m.HTTP.WithRetry(ctx, httpclient.Request{
		Method: http.MethodGet, URL: url, Headers: authheader.Headers(cred), Timeout: m.Timeout,
	}, m.BootstrapRetries, m.Sleep)
	if err != nil {
		return nil, reclassifyResumeTransport(err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, uploaderr.New(uploaderr.CodeSessionNotFound, false,
			fmt.Sprintf("session %s not found", sessionID), nil)
	}

	if !resp.OK() {
		return nil, uploaderr.New(uploaderr.CodeResumeFailed, true,
			fmt.Sprintf("resume_session: HTTP %d", resp.StatusCode),
			map[string]any{"statusCode": resp.StatusCode, "body": string(resp.Body)})
	}

	var rsr resumeSessionResponse
	if err := json.Unmarshal(resp.Body, &rsr); err != nil {
		return nil, uploaderr.New(uploaderr.CodeResumeParseError, false,
			fmt.Sprintf("parsing resume_session response: %v", err), nil)
	}

	rec := &Record{
		SessionID:   sessionID,
		Endpoint:    endpoint,
		TotalSize:   rsr.TotalSize,
		ChunkSize:   rsr.ChunkSize,
		TotalChunks: rsr.TotalChunks,
		Uploaded:    rsr.UploadedSize,
		Digest:      rsr.Checksum,
		Metadata:    rsr.Metadata,
		Token:       rsr.AuthToken,
		ResumeURL:   rsr.ResumeURL,
		CreatedAt:   time.Now(),
	}

	if rsr.TotalChunks == 0 && rsr.ChunkSize > 0 {
		rec.TotalChunks = chunkio.TotalChunks(rsr.TotalSize, rsr.ChunkSize)
	}

	if rsr.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, rsr.ExpiresAt); err == nil {
			rec.ExpiresAt = &t
		}
	}

	if rsr.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, rsr.CreatedAt); err == nil {
			rec.CreatedAt = t
		}
	}

	return rec, nil
}

// reclassifyResumeTransport relabels the generic transport-level
// NetworkError/Timeout codes from httpclient into the Resume-scoped codes
// the taxonomy defines, so callers can distinguish a failed resume from a
// failed chunk upload purely by error code.
func reclassifyResumeTransport(err error) error {
	ue, ok := err.(*uploaderr.Error)
	if !ok {
		return err
	}

	switch ue.Code {
	case uploaderr.CodeNetworkError:
		return uploaderr.New(uploaderr.CodeResumeNetworkError, true, ue.Message, ue.Details)
	case uploaderr.CodeTimeout:
		return uploaderr.New(uploaderr.CodeResumeTimeout, true, ue.Message, ue.Details)
	default:
		return err
	}
}

// Progress is the shape returned by GetProgress, mirroring the wire-format
// progress record in architecture §6.
type Progress struct {
	SessionID       string  `json:"sessionId"`
	BytesUploaded   int64   `json:"bytesUploaded"`
	BytesTotal      int64   `json:"bytesTotal"`
	Percentage      float64 `json:"percentage"`
	ChunksCompleted int     `json:"chunksCompleted"`
	ChunksTotal     int     `json:"chunksTotal"`
}

// GetProgress polls server-side progress for rec using bearer auth with
// rec.Token, per the §9 precedence decision (session-issued token for all
// post-creation calls).
func (m *Manager) GetProgress(ctx context.Context, rec *Record) (*Progress, error) {
	url := rec.Endpoint + "/" + rec.SessionID + "/progress"
	headers := authheader.Headers(&authheader.Credential{Kind: authheader.KindBearer, Value: rec.Token})

	resp, err := m.HTTP.WithRetry(ctx, httpclient.Request{Method: http.MethodGet, URL: url, Headers: headers, Timeout: m.Timeout}, m.BootstrapRetries, m.Sleep)
	if err != nil {
		if ue, ok := err.(*uploaderr.Error); ok && ue.Code == uploaderr.CodeNetworkError {
			return nil, uploaderr.New(uploaderr.CodeProgressNetworkError, true, ue.Message, ue.Details)
		}

		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, uploaderr.New(uploaderr.CodeProgressFetchFailed, true,
			fmt.Sprintf("get_progress: HTTP %d", resp.StatusCode),
			map[string]any{"statusCode": resp.StatusCode})
	}

	var p Progress
	if err := json.Unmarshal(resp.Body, &p); err != nil {
		return nil, uploaderr.New(uploaderr.CodeProgressParseError, true,
			fmt.Sprintf("parsing progress response: %v", err), nil)
	}

	return &p, nil
}

type authResponse struct {
	Token     string `json:"token"`
	AuthToken string `json:"authToken"`
}

// Authenticate exchanges caller-supplied credentials for a token by POSTing
// to endpoint with the credential's headers. Authentication failure
// (non-2xx) is always AuthFailed and never retryable, per §4.5 and the
// recovery policy in §4.8.
func (m *Manager) Authenticate(ctx context.Context, endpoint string, cred *authheader.Credential) (string, error) {
	resp, err := m.HTTP.WithRetry(ctx, httpclient.Request{
		Method: http.MethodPost, URL: endpoint, Headers: authheader.Headers(cred), Timeout: m.Timeout,
	}, m.BootstrapRetries, m.Sleep)
	if err != nil {
		if ue, ok := err.(*uploaderr.Error); ok && ue.Code == uploaderr.CodeNetworkError {
			return "", uploaderr.New(uploaderr.CodeAuthNetworkError, true, ue.Message, ue.Details)
		}

		return "", err
	}

	if !resp.OK() {
		return "", uploaderr.New(uploaderr.CodeAuthFailed, false,
			fmt.Sprintf("authenticate: HTTP %d", resp.StatusCode),
			map[string]any{"statusCode": resp.StatusCode})
	}

	var ar authResponse
	if err := json.Unmarshal(resp.Body, &ar); err != nil {
		return "", uploaderr.New(uploaderr.CodeAuthParseError, false,
			fmt.Sprintf("parsing authenticate response: %v", err), nil)
	}

	if ar.Token != "" {
		return ar.Token, nil
	}

	return ar.AuthToken, nil
}
