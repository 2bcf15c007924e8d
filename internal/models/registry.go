package models

// All lists the models migrated at startup.
func All() []interface{} {
	return []interface{}{
		&Engagement{},
		&ScheduleItem{},
		&Payment{},
		&CourseEnrollment{},
		&CurriculumPlan{},
		&ActivityLog{},
		&Notification{},
	}
}
