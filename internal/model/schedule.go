package model

import "time"

// ScheduleEntry is a queue row: the job becomes due once After has passed.
type ScheduleEntry struct {
	ID        uint      `gorm:"primaryKey"`
	JobID     uint      `gorm:"column:job;not null;uniqueIndex"`
	After     time.Time `gorm:"column:after;not null;index"`
	CreatedAt time.Time

	Job *Job `gorm:"foreignKey:JobID"`
}

func (ScheduleEntry) TableName() string {
	return "schedule"
}
