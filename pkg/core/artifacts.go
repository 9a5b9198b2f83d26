package core

// Attachment is a debug artifact captured from a device session.
type Attachment struct {
	Name        string `json:"name"`        // screenshot, source
	ContentType string `json:"contentType"` // image/png, application/xml
	Path        string `json:"path"`        // relative to the report directory
	Body        []byte `json:"-"`
}

// Attachment names
const (
	AttachmentScreenshot = "screenshot"
	AttachmentSource     = "source"
)

// Content types
const (
	ContentTypePNG = "image/png"
	ContentTypeXML = "application/xml"
)

// NewScreenshotAttachment creates a screenshot attachment
func NewScreenshotAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentScreenshot,
		ContentType: ContentTypePNG,
		Path:        path,
		Body:        data,
	}
}

// NewSourceAttachment creates a page source attachment
func NewSourceAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentSource,
		ContentType: ContentTypeXML,
		Path:        path,
		Body:        data,
	}
}

// ArtifactConfig controls when and what artifacts are captured
type ArtifactConfig struct {
	CaptureOnFailure bool `yaml:"captureOnFailure" json:"captureOnFailure"` // Default: true
	CaptureOnSuccess bool `yaml:"captureOnSuccess" json:"captureOnSuccess"` // Default: false

	Screenshot bool `yaml:"screenshot" json:"screenshot"` // Default: true
	Source     bool `yaml:"source" json:"source"`         // Default: true
}

// DefaultArtifactConfig captures screenshot and source on failure only
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		CaptureOnFailure: true,
		CaptureOnSuccess: false,
		Screenshot:       true,
		Source:           true,
	}
}

// ShouldCapture returns true if artifacts should be captured for the given status
func (c ArtifactConfig) ShouldCapture(status SessionStatus) bool {
	switch status {
	case StatusFailed, StatusErrored:
		return c.CaptureOnFailure
	case StatusPassed:
		return c.CaptureOnSuccess
	default:
		return false
	}
}

// ArtifactCollector captures debug artifacts from a live session
type ArtifactCollector interface {
	Screenshot() ([]byte, error)
	Source() (string, error)
}

// Collect gathers the configured artifacts. Capture failures are skipped.
func (c ArtifactConfig) Collect(collector ArtifactCollector, prefix string) []Attachment {
	var out []Attachment
	if c.Screenshot {
		if data, err := collector.Screenshot(); err == nil && len(data) > 0 {
			out = append(out, NewScreenshotAttachment(prefix+"-screenshot.png", data))
		}
	}
	if c.Source {
		if src, err := collector.Source(); err == nil && src != "" {
			out = append(out, NewSourceAttachment(prefix+"-source.xml", []byte(src)))
		}
	}
	return out
}
