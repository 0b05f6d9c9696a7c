// Package service implements the CMIS repository services on top of the
// in-memory object store and the type system.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/metrics"
	"github.com/tendant/simple-cmis/pkg/cmis/repo/memory"
	"github.com/tendant/simple-cmis/pkg/cmis/typesys"
)

// Version is reported as the product version of the repository.
const Version = "0.1.0"

// service implements the cmis.Service interface
type service struct {
	store          *memory.Store
	types          *typesys.Manager
	validator      *typesys.Validator
	logger         *slog.Logger
	metrics        metrics.ServiceMetrics
	eventSink      cmis.EventSink
	changeLog      cmis.ChangeLog
	info           cmis.RepositoryInfo
	maxContentSize int64
	contentUpdates cmis.ContentStreamUpdates
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithStore sets the object store. A new empty store is used by default.
func WithStore(store *memory.Store) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithTypeManager sets the type registry. By default only the base types
// are known.
func WithTypeManager(types *typesys.Manager) Option {
	return func(s *service) {
		s.types = types
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder for the service
func WithMetrics(m metrics.ServiceMetrics) Option {
	return func(s *service) {
		s.metrics = m
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink cmis.EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithChangeLog enables the change log. Without one GetContentChanges is
// not supported.
func WithChangeLog(log cmis.ChangeLog) Option {
	return func(s *service) {
		s.changeLog = log
	}
}

// WithRepositoryID sets the repository id
func WithRepositoryID(id string) Option {
	return func(s *service) {
		s.info.ID = id
	}
}

// WithRepositoryName sets the repository name and description
func WithRepositoryName(name, description string) Option {
	return func(s *service) {
		s.info.Name = name
		s.info.Description = description
	}
}

// WithMaxContentSize sets the content stream size ceiling in bytes.
// Zero or less disables the limit.
func WithMaxContentSize(n int64) Option {
	return func(s *service) {
		s.maxContentSize = n
	}
}

// WithContentStreamUpdates sets when document content may change.
func WithContentStreamUpdates(u cmis.ContentStreamUpdates) Option {
	return func(s *service) {
		s.contentUpdates = u
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (cmis.Service, error) {
	s := &service{
		validator:      typesys.NewValidator(),
		contentUpdates: cmis.ContentStreamUpdatesAnytime,
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		s.store = memory.New()
	}
	if s.types == nil {
		s.types = typesys.NewManager()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = metrics.NoopServiceMetrics{}
	}
	if s.eventSink == nil {
		s.eventSink = cmis.NewNoopEventSink()
	}
	if s.info.ID == "" {
		s.info.ID = uuid.NewString()
	}
	if s.info.Name == "" {
		s.info.Name = "simple-cmis"
	}
	switch s.contentUpdates {
	case cmis.ContentStreamUpdatesAnytime, cmis.ContentStreamUpdatesPWCOnly, cmis.ContentStreamUpdatesNone:
	default:
		return nil, fmt.Errorf("unknown content stream update policy %q", s.contentUpdates)
	}

	return s, nil
}

// track records metrics for an operation and annotates repository errors
// with the operation name. Call it deferred with a pointer to the named
// error result.
func (s *service) track(op, objectID string, start time.Time, errp *error) {
	err := *errp
	s.metrics.RecordOperation(op, time.Since(start), err)
	if err == nil {
		return
	}
	if e, ok := err.(*cmis.Error); ok {
		*errp = e.WithOp(op, objectID)
	}
	if cmis.KindOf(err) == cmis.KindRuntime {
		s.logger.Error("operation failed", "op", op, "object_id", objectID, "error", err)
		return
	}
	s.logger.Debug("operation rejected", "op", op, "object_id", objectID, "error", err)
}

// changes collects the change events of one write transaction.
type changes []cmis.ChangeEvent

func (c *changes) add(t cmis.ChangeType, obj memory.StoredObject) {
	b := obj.Base()
	*c = append(*c, cmis.ChangeEvent{
		ID:         uuid.NewString(),
		ObjectID:   b.ID,
		TypeID:     b.TypeID,
		ChangeType: t,
		Time:       time.Now().UTC(),
	})
}

func (s *service) view(fn func(tx *memory.Tx) error) error {
	return s.store.View(fn)
}

// update runs fn in a write transaction. The collected events are
// appended to the change log before the lock is released, so tokens follow
// commit order, and are delivered to the event sink afterwards.
func (s *service) update(ctx context.Context, fn func(tx *memory.Tx, ch *changes) error) error {
	var ch changes
	err := s.store.Update(func(tx *memory.Tx) error {
		err := fn(tx, &ch)
		s.metrics.SetObjectCount(tx.Len())
		if err != nil {
			return err
		}
		s.record(ctx, ch)
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, ch)
	return nil
}

func (s *service) record(ctx context.Context, ch changes) {
	if s.changeLog == nil {
		return
	}
	for i, e := range ch {
		stored, err := s.changeLog.Append(ctx, e)
		if err != nil {
			s.logger.Error("failed to record change", "object_id", e.ObjectID, "change_type", e.ChangeType, "error", err)
			continue
		}
		ch[i] = stored
	}
}

func (s *service) notify(ctx context.Context, ch changes) {
	for _, e := range ch {
		var err error
		switch e.ChangeType {
		case cmis.ChangeTypeCreated:
			err = s.eventSink.ObjectCreated(ctx, e)
		case cmis.ChangeTypeUpdated:
			err = s.eventSink.ObjectUpdated(ctx, e)
		case cmis.ChangeTypeDeleted:
			err = s.eventSink.ObjectDeleted(ctx, e)
		case cmis.ChangeTypeSecurity:
			err = s.eventSink.SecurityChanged(ctx, e)
		}
		if err != nil {
			// Sink failures never fail the operation.
			s.logger.Warn("event sink failed", "object_id", e.ObjectID, "change_type", e.ChangeType, "error", err)
		}
	}
}

// readContent ingests client content bounded by the size ceiling. A nil
// input yields no content.
func (s *service) readContent(in *cmis.ContentStreamInput) (*cmis.ContentStream, error) {
	if in == nil {
		return nil, nil
	}
	c, err := cmis.ReadContentStream(in.Reader, in.FileName, in.MimeType, s.maxContentSize)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordContentBytes("in", c.Length())
	return c, nil
}

func checkPaging(maxItems, skipCount int) error {
	if maxItems < 0 {
		return cmis.Errorf(cmis.KindInvalidArgument, "maxItems must not be negative")
	}
	if skipCount < 0 {
		return cmis.Errorf(cmis.KindInvalidArgument, "skipCount must not be negative")
	}
	return nil
}

// page returns the items selected by skipCount and maxItems and whether
// items follow the page. maxItems 0 selects everything after skipCount.
func page[T any](items []T, maxItems, skipCount int) ([]T, bool) {
	if skipCount >= len(items) {
		return []T{}, false
	}
	items = items[skipCount:]
	if maxItems > 0 && len(items) > maxItems {
		return items[:maxItems], true
	}
	return items, false
}
