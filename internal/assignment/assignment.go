// Package assignment defines the schedulable unit synchronized by the engine:
// who and what is dispatched to which project on which day.
package assignment

import "time"

// ProjectMasterSnapshot is the denormalized slice of the parent project
// embedded into each assignment for display. It is owned by the
// project-master subsystem and only mirrored here; it is refreshed wholesale
// when that subsystem reports a change.
type ProjectMasterSnapshot struct {
	ID               string
	Title            string
	CustomerName     string
	ConstructionType string
	Location         string
	Remarks          string
}

// Assignment is the unit of synchronization. Merges are keyed by ID; Date
// decides whether a record belongs to the currently loaded window.
type Assignment struct {
	ID                  string
	ProjectMasterID     string
	Date                time.Time
	AssignedEmployeeID  string
	Workers             []string
	Vehicles            []string
	ConfirmedWorkerIDs  []string
	ConfirmedVehicleIDs []string
	IsDispatchConfirmed bool
	Remarks             string
	SortOrder           int
	MemberCount         int
	EstimatedHours      float64
	MeetingTime         string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ProjectMaster       *ProjectMasterSnapshot
}

// Clone returns a deep copy, used for pre-mutation snapshots so a rollback
// restores state untouched by later in-place edits.
func (a Assignment) Clone() Assignment {
	c := a
	c.Workers = append([]string(nil), a.Workers...)
	c.Vehicles = append([]string(nil), a.Vehicles...)
	c.ConfirmedWorkerIDs = append([]string(nil), a.ConfirmedWorkerIDs...)
	c.ConfirmedVehicleIDs = append([]string(nil), a.ConfirmedVehicleIDs...)
	if a.ProjectMaster != nil {
		pm := *a.ProjectMaster
		c.ProjectMaster = &pm
	}
	return c
}

// InWindow reports whether the assignment's date falls inside [start, end],
// inclusive on both ends. Dates are compared at day granularity.
func (a Assignment) InWindow(start, end time.Time) bool {
	d := DayOf(a.Date)
	return !d.Before(DayOf(start)) && !d.After(DayOf(end))
}

// DayOf truncates t to its calendar day in UTC.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Patch is a partial update; nil fields are left unchanged. It mirrors the
// PATCH body accepted by the backend.
type Patch struct {
	ProjectMasterID     *string
	Date                *time.Time
	AssignedEmployeeID  *string
	Workers             *[]string
	Vehicles            *[]string
	ConfirmedWorkerIDs  *[]string
	ConfirmedVehicleIDs *[]string
	IsDispatchConfirmed *bool
	Remarks             *string
	SortOrder           *int
	MemberCount         *int
	EstimatedHours      *float64
	MeetingTime         *string
}

// Apply copies the patch's set fields onto a.
func (p Patch) Apply(a *Assignment) {
	if p.ProjectMasterID != nil {
		a.ProjectMasterID = *p.ProjectMasterID
	}
	if p.Date != nil {
		a.Date = DayOf(*p.Date)
	}
	if p.AssignedEmployeeID != nil {
		a.AssignedEmployeeID = *p.AssignedEmployeeID
	}
	if p.Workers != nil {
		a.Workers = append([]string(nil), (*p.Workers)...)
	}
	if p.Vehicles != nil {
		a.Vehicles = append([]string(nil), (*p.Vehicles)...)
	}
	if p.ConfirmedWorkerIDs != nil {
		a.ConfirmedWorkerIDs = append([]string(nil), (*p.ConfirmedWorkerIDs)...)
	}
	if p.ConfirmedVehicleIDs != nil {
		a.ConfirmedVehicleIDs = append([]string(nil), (*p.ConfirmedVehicleIDs)...)
	}
	if p.IsDispatchConfirmed != nil {
		a.IsDispatchConfirmed = *p.IsDispatchConfirmed
	}
	if p.Remarks != nil {
		a.Remarks = *p.Remarks
	}
	if p.SortOrder != nil {
		a.SortOrder = *p.SortOrder
	}
	if p.MemberCount != nil {
		a.MemberCount = *p.MemberCount
	}
	if p.EstimatedHours != nil {
		a.EstimatedHours = *p.EstimatedHours
	}
	if p.MeetingTime != nil {
		a.MeetingTime = *p.MeetingTime
	}
}
