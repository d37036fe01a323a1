package api

import (
	"time"

	"dandori/sync/internal/assignment"
)

// dateLayout is the wire format for calendar days.
const dateLayout = "2006-01-02"

type projectMasterDTO struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	CustomerName     string `json:"customerName"`
	ConstructionType string `json:"constructionType"`
	Location         string `json:"location"`
	Remarks          string `json:"remarks"`
}

type assignmentDTO struct {
	ID                  string            `json:"id"`
	ProjectMasterID     string            `json:"projectMasterId"`
	Date                string            `json:"date"`
	AssignedEmployeeID  string            `json:"assignedEmployeeId"`
	Workers             []string          `json:"workers"`
	Vehicles            []string          `json:"vehicles"`
	ConfirmedWorkerIDs  []string          `json:"confirmedWorkerIds"`
	ConfirmedVehicleIDs []string          `json:"confirmedVehicleIds"`
	IsDispatchConfirmed bool              `json:"isDispatchConfirmed"`
	Remarks             string            `json:"remarks"`
	SortOrder           int               `json:"sortOrder"`
	MemberCount         int               `json:"memberCount"`
	EstimatedHours      float64           `json:"estimatedHours"`
	MeetingTime         string            `json:"meetingTime"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
	ProjectMaster       *projectMasterDTO `json:"projectMaster,omitempty"`
}

func (d assignmentDTO) toDomain() (assignment.Assignment, error) {
	day, err := time.ParseInLocation(dateLayout, d.Date, time.UTC)
	if err != nil {
		return assignment.Assignment{}, err
	}
	a := assignment.Assignment{
		ID:                  d.ID,
		ProjectMasterID:     d.ProjectMasterID,
		Date:                day,
		AssignedEmployeeID:  d.AssignedEmployeeID,
		Workers:             d.Workers,
		Vehicles:            d.Vehicles,
		ConfirmedWorkerIDs:  d.ConfirmedWorkerIDs,
		ConfirmedVehicleIDs: d.ConfirmedVehicleIDs,
		IsDispatchConfirmed: d.IsDispatchConfirmed,
		Remarks:             d.Remarks,
		SortOrder:           d.SortOrder,
		MemberCount:         d.MemberCount,
		EstimatedHours:      d.EstimatedHours,
		MeetingTime:         d.MeetingTime,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
	if d.ProjectMaster != nil {
		a.ProjectMaster = &assignment.ProjectMasterSnapshot{
			ID:               d.ProjectMaster.ID,
			Title:            d.ProjectMaster.Title,
			CustomerName:     d.ProjectMaster.CustomerName,
			ConstructionType: d.ProjectMaster.ConstructionType,
			Location:         d.ProjectMaster.Location,
			Remarks:          d.ProjectMaster.Remarks,
		}
	}
	return a, nil
}

func toDTO(a assignment.Assignment) assignmentDTO {
	d := assignmentDTO{
		ID:                  a.ID,
		ProjectMasterID:     a.ProjectMasterID,
		Date:                a.Date.UTC().Format(dateLayout),
		AssignedEmployeeID:  a.AssignedEmployeeID,
		Workers:             a.Workers,
		Vehicles:            a.Vehicles,
		ConfirmedWorkerIDs:  a.ConfirmedWorkerIDs,
		ConfirmedVehicleIDs: a.ConfirmedVehicleIDs,
		IsDispatchConfirmed: a.IsDispatchConfirmed,
		Remarks:             a.Remarks,
		SortOrder:           a.SortOrder,
		MemberCount:         a.MemberCount,
		EstimatedHours:      a.EstimatedHours,
		MeetingTime:         a.MeetingTime,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
	if a.ProjectMaster != nil {
		d.ProjectMaster = &projectMasterDTO{
			ID:               a.ProjectMaster.ID,
			Title:            a.ProjectMaster.Title,
			CustomerName:     a.ProjectMaster.CustomerName,
			ConstructionType: a.ProjectMaster.ConstructionType,
			Location:         a.ProjectMaster.Location,
			Remarks:          a.ProjectMaster.Remarks,
		}
	}
	return d
}

type patchDTO struct {
	ProjectMasterID     *string   `json:"projectMasterId,omitempty"`
	Date                *string   `json:"date,omitempty"`
	AssignedEmployeeID  *string   `json:"assignedEmployeeId,omitempty"`
	Workers             *[]string `json:"workers,omitempty"`
	Vehicles            *[]string `json:"vehicles,omitempty"`
	ConfirmedWorkerIDs  *[]string `json:"confirmedWorkerIds,omitempty"`
	ConfirmedVehicleIDs *[]string `json:"confirmedVehicleIds,omitempty"`
	IsDispatchConfirmed *bool     `json:"isDispatchConfirmed,omitempty"`
	Remarks             *string   `json:"remarks,omitempty"`
	SortOrder           *int      `json:"sortOrder,omitempty"`
	MemberCount         *int      `json:"memberCount,omitempty"`
	EstimatedHours      *float64  `json:"estimatedHours,omitempty"`
	MeetingTime         *string   `json:"meetingTime,omitempty"`
}

func patchToDTO(p assignment.Patch) patchDTO {
	d := patchDTO{
		ProjectMasterID:     p.ProjectMasterID,
		AssignedEmployeeID:  p.AssignedEmployeeID,
		Workers:             p.Workers,
		Vehicles:            p.Vehicles,
		ConfirmedWorkerIDs:  p.ConfirmedWorkerIDs,
		ConfirmedVehicleIDs: p.ConfirmedVehicleIDs,
		IsDispatchConfirmed: p.IsDispatchConfirmed,
		Remarks:             p.Remarks,
		SortOrder:           p.SortOrder,
		MemberCount:         p.MemberCount,
		EstimatedHours:      p.EstimatedHours,
		MeetingTime:         p.MeetingTime,
	}
	if p.Date != nil {
		s := p.Date.UTC().Format(dateLayout)
		d.Date = &s
	}
	return d
}
