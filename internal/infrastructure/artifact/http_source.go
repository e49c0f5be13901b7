package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DriveDownloadURL is the direct-download endpoint for shared Google Drive files
const DriveDownloadURL = "https://drive.google.com/uc"

var errNotArtifact = errors.New("source returned an HTML page instead of the artifact")

// maxInterstitialSize bounds how much of an HTML page is scanned for a
// download form.
const maxInterstitialSize = 1 << 20

// StatusError is a non-200 response from an HTTP source
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.Code)
}

// Temporary reports whether the request is worth retrying
func (e *StatusError) Temporary() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}

// Is maps 404 and 410 to ErrNotFound
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && (e.Code == http.StatusNotFound || e.Code == http.StatusGone)
}

// DriveURL returns the direct-download URL for a Google Drive file ID
func DriveURL(fileID string) string {
	q := url.Values{}
	q.Set("export", "download")
	q.Set("id", fileID)
	return DriveDownloadURL + "?" + q.Encode()
}

// HTTPSource downloads artifacts with plain GET requests
type HTTPSource struct {
	name       string
	urls       map[string]string
	httpClient *http.Client
	rejectHTML bool
}

// NewHTTPSource creates a source serving each artifact from its own URL
func NewHTTPSource(urls map[string]string, httpClient *http.Client) *HTTPSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPSource{name: "http", urls: urls, httpClient: httpClient}
}

// NewDriveSource creates a source for artifacts shared on Google Drive, keyed
// by file ID. Files too large for Drive to scan come back as a warning page;
// its download form is submitted once. Any other HTML page, such as the one
// served for a private file, is rejected rather than saved.
func NewDriveSource(fileIDs map[string]string, httpClient *http.Client) *HTTPSource {
	urls := make(map[string]string, len(fileIDs))
	for artifact, id := range fileIDs {
		urls[artifact] = DriveURL(id)
	}
	s := NewHTTPSource(urls, httpClient)
	s.name = "gdrive"
	s.rejectHTML = true
	return s
}

// Name returns the source name
func (s *HTTPSource) Name() string {
	return s.name
}

// URL returns the location configured for artifact
func (s *HTTPSource) URL(artifact string) (string, bool) {
	u, ok := s.urls[artifact]
	return u, ok && u != ""
}

// Fetch streams the artifact body into dst
func (s *HTTPSource) Fetch(ctx context.Context, artifact string, dst Destination) error {
	u, ok := s.URL(artifact)
	if !ok {
		return fmt.Errorf("no %s URL for %s: %w", s.name, artifact, ErrNoSource)
	}

	resp, err := s.get(ctx, u)
	if err != nil {
		return err
	}

	if s.rejectHTML && isHTML(resp) {
		next, err := confirmDownloadURL(resp)
		resp.Body.Close()
		if err != nil {
			return err
		}
		if resp, err = s.get(ctx, next); err != nil {
			return err
		}
		if isHTML(resp) {
			resp.Body.Close()
			return errNotArtifact
		}
	}
	defer resp.Body.Close()

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	return nil
}

// get issues a GET and returns the response only when it is a 200
func (s *HTTPSource) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &StatusError{URL: u, Code: resp.StatusCode}
	}
	return resp, nil
}

func isHTML(resp *http.Response) bool {
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return mediaType == "text/html"
}

// confirmDownloadURL finds the form on Drive's virus-scan warning page and
// returns the URL its submit button would load. Any other page, such as the
// sign-in page served for a private file, yields errNotArtifact.
func confirmDownloadURL(resp *http.Response) (string, error) {
	z := html.NewTokenizer(io.LimitReader(resp.Body, maxInterstitialSize))

	var action string
	var fields url.Values
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", errNotArtifact
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Form:
				action, fields = attr(tok, "action"), url.Values{}
			case atom.Input:
				name := attr(tok, "name")
				if fields != nil && name != "" && strings.EqualFold(attr(tok, "type"), "hidden") {
					fields.Set(name, attr(tok, "value"))
				}
			}
		case html.EndTagToken:
			if z.Token().DataAtom != atom.Form {
				continue
			}
			if action != "" && fields.Get("confirm") != "" {
				target, err := resp.Request.URL.Parse(action)
				if err != nil {
					return "", fmt.Errorf("invalid download form action %q: %w", action, err)
				}
				target.RawQuery = fields.Encode()
				return target.String(), nil
			}
			action, fields = "", nil
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
