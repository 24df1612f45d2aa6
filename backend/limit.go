package backend

import (
	"context"

	"golang.org/x/sync/semaphore"
)

type writeConcurrencyLimitingStorage struct {
	Storage
	semaphore *semaphore.Weighted
}

// NewWriteConcurrencyLimiting is a decorator for Storage that limits the
// number of calls to WriteAt() on its writable handle that may run in
// parallel. Every blocked pwrite() pins an operating system thread, so an
// unbounded number of writers against slow media can exhaust them.
func NewWriteConcurrencyLimiting(base Storage, semaphore *semaphore.Weighted) Storage {
	return &writeConcurrencyLimitingStorage{
		Storage:   base,
		semaphore: semaphore,
	}
}

func (s *writeConcurrencyLimitingStorage) Writable() (WritableFile, error) {
	w, err := s.Storage.Writable()
	if err != nil {
		return nil, err
	}
	return &writeConcurrencyLimitingFile{
		WritableFile: w,
		semaphore:    s.semaphore,
	}, nil
}

type writeConcurrencyLimitingFile struct {
	WritableFile
	semaphore *semaphore.Weighted
}

func (f *writeConcurrencyLimitingFile) WriteAt(p []byte, off int64) (int, error) {
	if err := f.semaphore.Acquire(context.Background(), 1); err != nil {
		panic("acquiring semaphore with background context should never fail")
	}
	defer f.semaphore.Release(1)

	return f.WritableFile.WriteAt(p, off)
}
