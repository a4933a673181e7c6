package gallery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"salterio-site/internal/backend"
	"salterio-site/internal/intake"
)

const (
	MsgChooseImage   = "Choose at least one image."
	PromptDelete     = "Delete this image?"
	StatusReady      = "Ready"
	UploadResetAfter = 1500 * time.Millisecond
	uploadCacheCtl   = "3600"
)

// FileState is the outcome of one file in an upload batch.
type FileState string

const (
	FileUploaded       FileState = "uploaded"
	FileUploadFailed   FileState = "upload_failed"
	FileOrphanedObject FileState = "orphaned_object"
)

type UploadFile struct {
	Name        string
	ContentType string
	Body        io.Reader
	// Err marks a file that could not be read from the request. It is
	// counted as a failed upload.
	Err error
}

type UploadRequest struct {
	Files         []UploadFile
	CaptionPrefix string
	Tag           string
}

type FileOutcome struct {
	Name  string    `json:"name"`
	Key   string    `json:"key"`
	State FileState `json:"state"`
	Item  *Item     `json:"item,omitempty"`
	Error string    `json:"error,omitempty"`
}

type BatchResult struct {
	Total      int           `json:"total"`
	Done       int           `json:"done"`
	Failed     int           `json:"failed"`
	Status     string        `json:"status"`
	Outcomes   []FileOutcome `json:"outcomes"`
	ResetAfter time.Duration `json:"-"`

	// ResetAfterMs is when the status line goes back to "Ready".
	ResetAfterMs int64 `json:"resetAfterMs"`
}

// Orphans lists keys whose object was stored but whose row insert failed.
func (r BatchResult) Orphans() []string {
	var keys []string
	for _, o := range r.Outcomes {
		if o.State == FileOrphanedObject {
			keys = append(keys, o.Key)
		}
	}
	return keys
}

func ProgressText(done, failed, total int) string {
	return fmt.Sprintf("Uploading… %d/%d (%d failed)", done+failed, total, failed)
}

func BatchStatus(done, failed, total int) string {
	switch {
	case failed == 0:
		return fmt.Sprintf("Uploaded %d/%d ✔", done, total)
	case done > 0:
		return fmt.Sprintf("Partial: %d ok, %d failed", done, failed)
	default:
		return fmt.Sprintf("All failed (%d)", failed)
	}
}

// Listing is the admin grid: every image newest first, filtered by tag on
// our side.
type Listing struct {
	Tag     string   `json:"tag"`
	Tags    []string `json:"tags"`
	Items   []Item   `json:"items"`
	Message string   `json:"message,omitempty"`
}

type Admin struct {
	rows    backend.RowStore
	objects backend.ObjectStore
	log     *slog.Logger
	now     func() time.Time
	random  func() string
}

func NewAdmin(rows backend.RowStore, objects backend.ObjectStore, log *slog.Logger) *Admin {
	if log == nil {
		log = slog.Default()
	}
	return &Admin{rows: rows, objects: objects, log: log, now: time.Now, random: RandomSuffix}
}

// Upload stores each file and inserts its row, strictly one file after the
// other. progress receives the running status after every file and may be
// nil. Per-file failures are reported in the result, never as an error.
func (a *Admin) Upload(ctx context.Context, req UploadRequest, progress func(string)) (BatchResult, error) {
	total := len(req.Files)
	if total == 0 {
		return BatchResult{}, intake.ValidationError{Field: "files", Message: MsgChooseImage}
	}
	if progress == nil {
		progress = func(string) {}
	}
	tag := strings.TrimSpace(req.Tag)
	if tag == "" {
		tag = DefaultTag
	}

	res := BatchResult{
		Total:        total,
		ResetAfter:   UploadResetAfter,
		ResetAfterMs: UploadResetAfter.Milliseconds(),
		Outcomes:     make([]FileOutcome, 0, total),
	}
	progress(ProgressText(0, 0, total))

	for _, f := range req.Files {
		key := ObjectKey(a.now(), a.random(), f.Name)
		outcome := FileOutcome{Name: f.Name, Key: key}

		err := f.Err
		if err == nil {
			err = a.objects.Upload(ctx, backend.BucketGallery, key, f.Body, backend.UploadOptions{
				ContentType:  f.ContentType,
				CacheControl: uploadCacheCtl,
			})
		}
		if err != nil {
			a.log.Error("gallery upload failed", "file", f.Name, "key", key, "error", err)
			outcome.State = FileUploadFailed
			outcome.Error = err.Error()
			res.Failed++
			res.Outcomes = append(res.Outcomes, outcome)
			progress(ProgressText(res.Done, res.Failed, total))
			continue
		}

		url := a.objects.PublicURL(backend.BucketGallery, key)
		rows, err := a.rows.Insert(ctx, backend.TableGallery, backend.Row{
			"path":    key,
			"url":     url,
			"caption": Caption(req.CaptionPrefix, SanitizeName(f.Name)),
			"tag":     tag,
		})
		if err != nil {
			a.log.Error("gallery insert failed after upload", "file", f.Name, "key", key, "error", err)
			outcome.State = FileOrphanedObject
			outcome.Error = err.Error()
			res.Failed++
			res.Outcomes = append(res.Outcomes, outcome)
			progress(ProgressText(res.Done, res.Failed, total))
			continue
		}

		item := itemFromRow(rows[0])
		outcome.State = FileUploaded
		outcome.Item = &item
		res.Done++
		res.Outcomes = append(res.Outcomes, outcome)
		progress(ProgressText(res.Done, res.Failed, total))
	}

	res.Status = BatchStatus(res.Done, res.Failed, total)
	return res, nil
}

// List returns the admin grid for tag ("All" or empty for everything).
func (a *Admin) List(ctx context.Context, tag string) (Listing, error) {
	if tag == "" {
		tag = TagAll
	}
	listing := Listing{Tag: tag, Tags: []string{TagAll}, Items: []Item{}}
	rows, err := a.rows.Select(ctx, backend.TableGallery, backend.Query{}.OrderBy("created_at", false))
	if err != nil {
		a.log.Error("gallery list failed", "error", err)
		listing.Message = MsgLoadFailed
		return listing, err
	}

	all := itemsFromRows(rows)
	tags := make([]string, 0, len(all))
	for _, it := range all {
		tags = append(tags, it.Tag)
	}
	listing.Tags = DistinctTags(tags)

	for _, it := range all {
		if tag == TagAll || it.DisplayTag() == tag {
			listing.Items = append(listing.Items, it)
		}
	}
	if len(listing.Items) == 0 {
		listing.Message = MsgEmptyGallery
	}
	return listing, nil
}

// Delete removes the object first, best effort, then the row. A failed
// removal is reported as CleanupOrphanedObject and does not stop the row
// delete.
func (a *Admin) Delete(ctx context.Context, id string, confirmed bool) (backend.CleanupState, error) {
	if err := intake.Confirm(confirmed, PromptDelete); err != nil {
		return "", err
	}
	rows, err := a.rows.Select(ctx, backend.TableGallery, backend.Query{}.Where(backend.Eq("id", id)))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("gallery item %s: %w", id, backend.ErrNotFound)
	}

	state := backend.CleanupSkipped
	if path := rows[0].String("path"); path != "" {
		state = backend.CleanupComplete
		if err := a.objects.Remove(ctx, backend.BucketGallery, []string{path}); err != nil {
			a.log.Warn("gallery object removal failed", "id", id, "path", path, "error", err)
			state = backend.CleanupOrphanedObject
		}
	}

	if err := a.rows.Delete(ctx, backend.TableGallery, []backend.Filter{backend.Eq("id", id)}); err != nil {
		a.log.Error("gallery row delete failed", "id", id, "error", err)
		return state, err
	}
	return state, nil
}
