// Package client is the dealer-side upload form: it holds the entered fields and
// selected documents, validates them locally and submits them to the intake API.
package client

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/cppla/dealerintake/models"
	"github.com/cppla/dealerintake/utils"
)

const (
	// HomeDestination is where unverified users and finished sessions are sent.
	HomeDestination = "/"
	// DefaultEndpoint is the intake API of a locally running server.
	DefaultEndpoint = "http://localhost:5000/api/upload"

	// Error keys.
	FieldDealersCode    = "dealersCode"
	FieldDealershipName = "dealershipName"
	FieldSubmit         = "submit"
)

const (
	msgDealersCodeRequired    = "Dealers Code is required"
	msgDealershipNameRequired = "Dealership Name is required"
	msgSelfRequired           = "Self Passport is required"
	msgUnsupportedType        = "Please upload an image or PDF file"
	msgTooLarge               = "File size should be less than 5MB"
)

// RedirectError tells the caller to leave the form for Destination.
type RedirectError struct {
	Destination string
	Reason      string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("%s: redirect to %s", e.Reason, e.Destination)
}

// ErrNotVerified is returned by NewForm for a session without a verified mobile number.
var ErrNotVerified = &RedirectError{Destination: HomeDestination, Reason: "mobile number not verified"}

// ErrSubmitInProgress is returned by HandleSubmit while an earlier submit is in flight.
var ErrSubmitInProgress = errors.New("submit already in progress")

// Session is the identity context the form is opened with.
type Session struct {
	Verified     bool
	MobileNumber string
}

// Form is the upload form state. All methods are safe for concurrent use.
type Form struct {
	session    Session
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger

	mu             sync.Mutex
	dealersCode    string
	dealershipName string
	files          map[models.DocumentKind]*File
	previews       map[models.DocumentKind]string
	generation     map[models.DocumentKind]uint64
	errors         map[string]string
	submitting     bool
	succeeded      bool

	previewWG sync.WaitGroup
}

type Option func(*Form)

func WithEndpoint(url string) Option {
	return func(f *Form) { f.endpoint = url }
}

func WithHTTPClient(c *http.Client) Option {
	return func(f *Form) {
		if c != nil {
			f.httpClient = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Form) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewForm opens the form for a verified session. An unverified session gets
// ErrNotVerified and no form.
func NewForm(session Session, opts ...Option) (*Form, error) {
	if !session.Verified {
		return nil, ErrNotVerified
	}
	f := &Form{
		session:    session,
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     zap.NewNop(),
		generation: map[models.DocumentKind]uint64{},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.resetLocked()
	return f, nil
}

func (f *Form) resetLocked() {
	f.dealersCode = ""
	f.dealershipName = ""
	f.files = map[models.DocumentKind]*File{}
	f.previews = map[models.DocumentKind]string{}
	f.errors = map[string]string{}
	f.submitting = false
	f.succeeded = false
	// bump generations so previews still running for the old state are dropped
	for _, kind := range []models.DocumentKind{models.DocumentSelf, models.DocumentSpouse} {
		f.generation[kind]++
	}
}

// SetDealersCode stores the value and clears its error once it is non-blank.
func (f *Form) SetDealersCode(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dealersCode = v
	if strings.TrimSpace(v) != "" {
		delete(f.errors, FieldDealersCode)
	}
}

// SetDealershipName stores the value and clears its error once it is non-blank.
func (f *Form) SetDealershipName(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dealershipName = v
	if strings.TrimSpace(v) != "" {
		delete(f.errors, FieldDealershipName)
	}
}

// HandleFileChange selects file for slot. Files that are not an image or PDF, or
// are larger than 5 MiB, clear the slot and set the slot error. Accepted files
// clear the error and start a preview in the background. A nil file is ignored.
func (f *Form) HandleFileChange(file *File, slot models.DocumentKind) {
	if file == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generation[slot]++
	gen := f.generation[slot]

	var reject string
	switch {
	case !models.IsAcceptedMimeType(file.MimeType):
		reject = msgUnsupportedType
	case file.Size > models.ClientMaxFileBytes:
		reject = msgTooLarge
	}
	if reject != "" {
		f.errors[string(slot)] = reject
		delete(f.files, slot)
		delete(f.previews, slot)
		return
	}

	delete(f.errors, string(slot))
	f.files[slot] = file
	delete(f.previews, slot)

	f.previewWG.Add(1)
	go func() {
		defer f.previewWG.Done()
		preview, err := buildPreview(file)
		if err != nil {
			f.logger.Warn("preview failed", zap.String("slot", string(slot)), zap.String("file", file.Name), zap.Error(err))
			return
		}
		f.setPreview(slot, gen, preview)
	}()
}

func (f *Form) setPreview(slot models.DocumentKind, gen uint64, preview string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation[slot] != gen {
		return
	}
	f.previews[slot] = preview
}

// WaitPreviews blocks until every started preview has finished.
func (f *Form) WaitPreviews() {
	f.previewWG.Wait()
}

// validateLocked replaces the error map with the result of validating the
// required fields and reports whether the form can be submitted.
func (f *Form) validateLocked() error {
	input := struct {
		DealersCode    string `json:"dealersCode"`
		DealershipName string `json:"dealershipName"`
		Self           *File  `json:"self"`
	}{
		DealersCode:    strings.TrimSpace(f.dealersCode),
		DealershipName: strings.TrimSpace(f.dealershipName),
		Self:           f.files[models.DocumentSelf],
	}
	err := validation.ValidateStruct(&input,
		validation.Field(&input.DealersCode, validation.Required.Error(msgDealersCodeRequired)),
		validation.Field(&input.DealershipName, validation.Required.Error(msgDealershipNameRequired)),
		validation.Field(&input.Self, validation.NotNil.Error(msgSelfRequired)),
	)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validation.Errors)
	if !ok {
		return utils.NewValidationError(err.Error())
	}
	f.errors = map[string]string{}
	keys := make([]string, 0, len(verrs))
	for k, e := range verrs {
		f.errors[k] = e.Error()
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, f.errors[k])
	}
	return utils.NewValidationError(strings.Join(msgs, "; "))
}

// Errors returns a copy of the current field errors keyed by field or slot name.
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Error returns the error for key, or "".
func (f *Form) Error(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors[key]
}

// File returns the selected file for slot, or nil.
func (f *Form) File(slot models.DocumentKind) *File {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[slot]
}

// Preview returns the preview of slot: a data URL for images, PreviewPDF for PDF
// documents or "" while none is ready.
func (f *Form) Preview(slot models.DocumentKind) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.previews[slot]
}

func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

func (f *Form) Succeeded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.succeeded
}

// Confirmation is the message shown after a successful submit.
func (f *Form) Confirmation() string {
	return "Your documents have been uploaded successfully. You will receive a confirmation on your mobile number " +
		f.session.MobileNumber + "."
}

// BackToStart clears the form and returns where to navigate next.
func (f *Form) BackToStart() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
	return HomeDestination
}
