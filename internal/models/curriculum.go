package models

import (
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CurriculumTopic is the title planned for one (week, session) slot.
type CurriculumTopic struct {
	Week    int    `json:"week"`
	Session int    `json:"session"`
	Title   string `json:"title"`
}

// CurriculumPlan holds the ordered topics taught for a skill.
type CurriculumPlan struct {
	ID        uint                                `gorm:"primaryKey" json:"id"`
	Skill     string                              `gorm:"size:128;uniqueIndex;not null" json:"skill"`
	Topics    datatypes.JSONSlice[CurriculumTopic] `gorm:"type:json" json:"topics"`
	CreatedAt time.Time                           `json:"created_at"`
	UpdatedAt time.Time                           `json:"updated_at"`
}

// BeforeSave keeps topics ordered by (week, session).
func (p *CurriculumPlan) BeforeSave(tx *gorm.DB) error {
	sort.SliceStable(p.Topics, func(i, j int) bool {
		if p.Topics[i].Week != p.Topics[j].Week {
			return p.Topics[i].Week < p.Topics[j].Week
		}
		return p.Topics[i].Session < p.Topics[j].Session
	})
	return nil
}
