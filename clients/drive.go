package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"drivefetch/logging"
	"drivefetch/models"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultFolderURL  = "https://drive.google.com/drive/folders/"
	DefaultBatchURL   = "https://clients6.google.com/batch/drive/v2beta"
	DefaultContentURL = "https://drive.usercontent.google.com/download"
	DefaultUserAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

	driveOrigin    = "https://drive.google.com"
	batchBoundary  = "=====vc17a3rwnndj====="
	listPageSize   = 1000
	maxListedPages = 10000
)

var (
	ErrInvalidID        = errors.New("invalid ID format, expected 33 characters of [a-zA-Z0-9-_]")
	ErrAPIKeyNotFound   = errors.New("api key not found in folder page")
	ErrNotAuthenticated = errors.New("client is not authenticated, call Authenticate first")

	idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{33}$`)
	// The key is the second 39 character token after the __initData marker.
	keyPattern = regexp.MustCompile(`(?:__initData.*?)(?:[a-zA-Z0-9]{39}.*?)([a-zA-Z0-9]{39})`)
)

// DriveConfig holds endpoints and transport settings for the Drive client
type DriveConfig struct {
	FolderURL    string
	BatchURL     string
	ContentURL   string
	UserAgent    string
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Timeout bounds a whole request including body reads; zero disables it.
	Timeout time.Duration
	Logger  *logging.Logger
}

// DefaultDriveConfig returns the public Google Drive endpoints
func DefaultDriveConfig() DriveConfig {
	return DriveConfig{
		FolderURL:    DefaultFolderURL,
		BatchURL:     DefaultBatchURL,
		ContentURL:   DefaultContentURL,
		UserAgent:    DefaultUserAgent,
		RetryMax:     3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
	}
}

// DriveClient client for reading publicly shared Google Drive folders
type DriveClient struct {
	cfg    DriveConfig
	apiKey string
	client *resty.Client
	log    *logging.Logger
}

// driveFile structure for an item in the Drive v2 files listing
type driveFile struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	MimeType    string `json:"mimeType"`
	MD5Checksum string `json:"md5Checksum,omitempty"`
	FileSize    string `json:"fileSize,omitempty"`
}

// driveFileList structure for a page of the files listing
type driveFileList struct {
	Items         []driveFile `json:"items"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
	Error         *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// retryLogger routes retryablehttp messages through the application logger
type retryLogger struct {
	log *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Warnf("[retry] %s %v", msg, keysAndValues)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debugf("[retry] %s %v", msg, keysAndValues)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warnf("[retry] %s %v", msg, keysAndValues)
}

// NewDriveClient creates a new Drive client
func NewDriveClient(cfg DriveConfig) *DriveClient {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = cfg.RetryWaitMax
	}
	retryClient.Logger = &retryLogger{log: cfg.Logger}

	client := resty.NewWithClient(retryClient.StandardClient())
	client.SetDisableWarn(true)
	client.SetHeader("User-Agent", cfg.UserAgent)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &DriveClient{
		cfg:    cfg,
		client: client,
		log:    cfg.Logger,
	}
}

// ValidateID checks the shape of a Drive folder or file id
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// FileDownloadURL returns the direct download link for a single file id
func FileDownloadURL(id string) string {
	return contentURL(DefaultContentURL, id)
}

func contentURL(base, id string) string {
	q := url.Values{}
	q.Set("id", id)
	q.Set("export", "download")
	q.Set("confirm", "t")
	return base + "?" + q.Encode()
}

// Authenticate fetches the folder page and extracts the public API key
func (dc *DriveClient) Authenticate(ctx context.Context, folderID string) error {
	dc.log.Debugf("GET: HTML from Google Drive folder.")

	resp, err := dc.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain").
		Get(dc.cfg.FolderURL + folderID)
	if err != nil {
		return fmt.Errorf("failed to fetch folder page: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("fetch folder page failed: status %d", resp.StatusCode())
	}

	key, err := extractAPIKey(resp.String())
	if err != nil {
		return err
	}
	dc.apiKey = key
	return nil
}

func extractAPIKey(html string) (string, error) {
	m := keyPattern.FindStringSubmatch(html)
	if len(m) < 2 {
		return "", ErrAPIKeyNotFound
	}
	return m[1], nil
}

// ListChildren lists the immediate, non-trashed children of a folder
func (dc *DriveClient) ListChildren(ctx context.Context, folderID string) ([]models.Entry, error) {
	if dc.apiKey == "" {
		return nil, ErrNotAuthenticated
	}

	dc.log.Debugf("GET: JSON for files and folders in %s.", folderID)

	var entries []models.Entry
	pageToken := ""
	for page := 0; page < maxListedPages; page++ {
		list, err := dc.listPage(ctx, folderID, pageToken)
		if err != nil {
			return nil, err
		}
		for _, f := range list.Items {
			entries = append(entries, f.toEntry())
		}
		if list.NextPageToken == "" {
			return entries, nil
		}
		pageToken = list.NextPageToken
	}
	return nil, fmt.Errorf("listing of %s exceeded %d pages", folderID, maxListedPages)
}

func (dc *DriveClient) listPage(ctx context.Context, folderID, pageToken string) (*driveFileList, error) {
	resp, err := dc.client.R().
		SetContext(ctx).
		SetHeader("Origin", driveOrigin).
		SetHeader("Content-Type", "text/plain").
		SetQueryParam("$ct", `multipart/mixed; boundary="`+batchBoundary+`"`).
		SetBody(batchBody(folderID, dc.apiKey, pageToken)).
		Post(dc.cfg.BatchURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("list files failed: status %d", resp.StatusCode())
	}

	raw := extractJSON(resp.String())
	if raw == "" {
		return nil, fmt.Errorf("failed to parse response: no JSON object in batch reply")
	}

	var list driveFileList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if list.Error != nil {
		return nil, fmt.Errorf("list files failed: %d %s", list.Error.Code, list.Error.Message)
	}
	return &list, nil
}

// batchBody wraps a files.list request into a multipart/mixed batch body
func batchBody(folderID, key, pageToken string) string {
	query := "q=" + escape("trashed = false and '"+folderID+"' in parents") +
		"&key=" + escape(key) +
		"&maxResults=" + strconv.Itoa(listPageSize)
	if pageToken != "" {
		query += "&pageToken=" + escape(pageToken)
	}

	return "--" + batchBoundary + "\n" +
		"content-type: application/http\n" +
		"content-transfer-encoding: binary\n\n" +
		"GET /drive/v2beta/files?" + query + " HTTP/1.1\n\n" +
		"--" + batchBoundary + "--"
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// extractJSON returns the first complete top-level JSON object in s
func extractJSON(s string) string {
	start, depth := -1, 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func (f driveFile) toEntry() models.Entry {
	e := models.Entry{
		ID:       f.ID,
		Title:    f.Title,
		MimeType: f.MimeType,
		Kind:     models.KindFromMimeType(f.MimeType),
		Checksum: strings.ToLower(f.MD5Checksum),
	}
	if size, err := strconv.ParseInt(f.FileSize, 10, 64); err == nil {
		e.Size = size
		e.SizeKnown = true
	}
	return e
}

// OpenStream opens the content of a file. The returned length is -1 when unknown.
func (dc *DriveClient) OpenStream(ctx context.Context, fileID string) (io.ReadCloser, int64, error) {
	resp, err := dc.client.R().
		SetContext(ctx).
		SetHeader("Origin", driveOrigin).
		SetDoNotParseResponse(true).
		Get(contentURL(dc.cfg.ContentURL, fileID))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to download file: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		resp.RawBody().Close()
		return nil, 0, fmt.Errorf("download failed: status %d", resp.StatusCode())
	}

	length := int64(-1)
	if resp.RawResponse != nil {
		length = resp.RawResponse.ContentLength
	}
	return resp.RawBody(), length, nil
}
