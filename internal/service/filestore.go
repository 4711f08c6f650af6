package service

import (
	"context"
	"errors"
	"fmt"
	"golang-jobrunner/internal/configfield"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/repository"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/pkg/logger"
	"os"
	"path/filepath"
	"strings"
)

const originFileStore = "FileStore"

var ErrInvalidFile = errors.New("invalid file")

type StoreFileRequest struct {
	RunTemplateID uint
	// JobID restricts the file to one job; zero stores it for the template.
	JobID    uint
	Field    string
	FileName string
	Data     []byte
}

type FileStore interface {
	Store(ctx context.Context, req StoreFileRequest) (*model.StoredFile, error)
	// Extract writes the files of a job under a directory of its own and
	// returns them as file-path fields. The returned cleanup removes the
	// directory.
	Extract(ctx context.Context, job *model.Job) (*configfield.Fields, func(), error)
}

type fileStore struct {
	log  *logger.Logger
	dir  string
	repo repository.FileStoreRepository
}

func NewFileStore(log *logger.Logger, dir string, repo repository.FileStoreRepository) FileStore {
	return &fileStore{log: log, dir: dir, repo: repo}
}

func (s *fileStore) Store(ctx context.Context, req StoreFileRequest) (*model.StoredFile, error) {
	name := filepath.Base(strings.TrimSpace(req.FileName))
	field := strings.TrimSpace(req.Field)
	switch {
	case field == "":
		return nil, fmt.Errorf("%w: missing field", ErrInvalidFile)
	case name == "." || name == string(filepath.Separator):
		return nil, fmt.Errorf("%w: missing file name", ErrInvalidFile)
	case req.RunTemplateID == 0:
		return nil, fmt.Errorf("%w: missing run template", ErrInvalidFile)
	}

	file := &model.StoredFile{
		Field:         field,
		FileName:      name,
		Data:          req.Data,
		RunTemplateID: req.RunTemplateID,
		JobID:         req.JobID,
	}
	if err := s.repo.Upsert(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to store file %s of run template %d: %w", field, req.RunTemplateID, err)
	}
	status.Report(ctx, s.log, status.Success, originFileStore, "File %s stored for field %s", name, field)
	return file, nil
}

func (s *fileStore) Extract(ctx context.Context, job *model.Job) (*configfield.Fields, func(), error) {
	fields := configfield.New("stored files")
	noop := func() {}

	files, err := s.repo.FindForJob(ctx, job.RunTemplateID, job.ID)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to load files of job %d: %w", job.ID, err)
	}
	if len(files) == 0 {
		return fields, noop, nil
	}

	dir := filepath.Join(s.dir, job.UUID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, noop, fmt.Errorf("failed to create file directory of job %d: %w", job.ID, err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn("Failed to remove job files", logger.ErrorField(err), logger.StringField("dir", dir))
		}
	}

	// template rows come first, so a job row for the same field wins
	for _, f := range files {
		path := filepath.Join(dir, f.Field+"_"+f.FileName)
		if err := os.WriteFile(path, f.Data, 0o600); err != nil {
			cleanup()
			return nil, noop, fmt.Errorf("failed to write file %s of job %d: %w", f.Field, job.ID, err)
		}
		fields.Add(configfield.NewField(f.Field, configfield.TypeFilePath, f.FileName).
			SetValue(path).
			SetSource(configfield.File(path)))
	}
	return fields, cleanup, nil
}
