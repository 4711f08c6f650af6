package repository

import (
	"golang-jobrunner/pkg/database"
)

type Repository struct {
	JobRepo         JobRepository
	ScheduleRepo    ScheduleRepository
	RunTemplateRepo RunTemplateRepository
	ApplicationRepo ApplicationRepository
	CredentialRepo  CredentialRepository
	EventRepo       EventRepository
	FileStoreRepo   FileStoreRepository
	UnitOfWork      UnitOfWork
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{
		JobRepo:         NewJobRepository(db.DB),
		ScheduleRepo:    NewScheduleRepository(db.DB, db.Driver()),
		RunTemplateRepo: NewRunTemplateRepository(db.DB),
		ApplicationRepo: NewApplicationRepository(db.DB),
		CredentialRepo:  NewCredentialRepository(db.DB),
		EventRepo:       NewEventRepository(db.DB),
		FileStoreRepo:   NewFileStoreRepository(db.DB),
		UnitOfWork:      NewUnitOfWork(db.DB),
	}
}
