package caldav

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/google/uuid"

	"eventreview/internal/ics"
	"eventreview/internal/models"
)

// PublishState records what has been written to the calendar. The key is
// the object name and the value is a hash of the published occurrence.
type PublishState map[string]string

// Result summarizes one publish run.
type Result struct {
	Created   int
	Updated   int
	Removed   int
	Unchanged int
	Failed    int
}

// Publisher mirrors approved events into a calendar collection and removes
// occurrences that were published before and are now rejected.
type Publisher struct {
	logger       *slog.Logger
	store        Store
	calendarPath string
	stateFile    string
	state        PublishState
	dryRun       bool
}

// NewPublisher creates a publisher writing under calendarPath. stateFile may
// be empty, in which case nothing is remembered between runs.
func NewPublisher(logger *slog.Logger, store Store, calendarPath, stateFile string, dryRun bool) (*Publisher, error) {
	state, err := loadState(stateFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load publish state: %w", err)
	}
	return &Publisher{
		logger:       logger,
		store:        store,
		calendarPath: calendarPath,
		stateFile:    stateFile,
		state:        state,
		dryRun:       dryRun,
	}, nil
}

// Publish runs one cycle over events. A failure on one occurrence is logged
// and counted; the rest are still published.
func (p *Publisher) Publish(ctx context.Context, events []models.Event) (Result, error) {
	p.logger.Info("Starting publish cycle.", "events", len(events), "dryRun", p.dryRun)

	var res Result
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := p.publishEvent(ctx, e, &res); err != nil {
			res.Failed++
			p.logger.Error("Failed to publish event", "uid", e.UID, "recurrenceId", e.RecurrenceID, "error", err)
		}
	}

	if !p.dryRun {
		if err := p.saveState(); err != nil {
			return res, fmt.Errorf("failed to save publish state: %w", err)
		}
	}

	p.logger.Info("Publish cycle finished.",
		"created", res.Created, "updated", res.Updated, "removed", res.Removed,
		"unchanged", res.Unchanged, "failed", res.Failed)
	return res, nil
}

func (p *Publisher) publishEvent(ctx context.Context, e models.Event, res *Result) error {
	name := ObjectName(e.Key())
	objectPath := path.Join(p.calendarPath, name)
	prev, published := p.state[name]

	switch e.Status {
	case models.StatusRejected:
		if !published {
			return nil
		}
		if p.dryRun {
			p.logger.Info("[DRY RUN] Would remove event", "uid", e.UID, "path", objectPath)
			res.Removed++
			return nil
		}
		if err := p.store.RemoveAll(ctx, objectPath); err != nil {
			return fmt.Errorf("failed to remove event from CalDAV server: %w", err)
		}
		delete(p.state, name)
		res.Removed++
		return nil

	case models.StatusApproved:
		var buf bytes.Buffer
		if err := ics.Encode(&buf, []models.Event{e}, ""); err != nil {
			return err
		}
		hash := contentHash(e)
		if published && prev == hash {
			res.Unchanged++
			return nil
		}
		if p.dryRun {
			p.logger.Info("[DRY RUN] Would write event", "uid", e.UID, "summary", e.Summary, "path", objectPath)
		} else {
			if err := p.put(ctx, objectPath, buf.Bytes()); err != nil {
				return err
			}
			p.state[name] = hash
		}
		if published {
			res.Updated++
		} else {
			res.Created++
		}
		return nil

	default:
		return nil
	}
}

func (p *Publisher) put(ctx context.Context, objectPath string, data []byte) error {
	w, err := p.store.Create(ctx, objectPath)
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to upload event: %w", err)
	}
	return nil
}

// ObjectName returns the stable .ics file name for one occurrence.
func ObjectName(key models.EventKey) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(key.UID+"\x00"+key.RecurrenceID))
	return id.String() + ".ics"
}

// contentHash covers the fields that end up in the published object, so a
// changed overlay or time triggers a rewrite.
func contentHash(e models.Event) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\x00%s\x00%s\x00%s\x00%s",
		e.UID, e.RecurrenceID, e.Summary, e.Description, e.DisplayLocation(),
		e.StartTime.UTC().Format(time.RFC3339), e.EndTime.UTC().Format(time.RFC3339),
		e.Organization, e.Type)
	return hex.EncodeToString(h.Sum(nil))
}

func loadState(file string) (PublishState, error) {
	if file == "" {
		return PublishState{}, nil
	}
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return PublishState{}, nil
	}
	if err != nil {
		return nil, err
	}
	state := PublishState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return state, nil
}

func (p *Publisher) saveState() error {
	if p.stateFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(p.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal publish state: %w", err)
	}
	return os.WriteFile(p.stateFile, data, 0o644)
}
