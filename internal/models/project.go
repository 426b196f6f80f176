package models

import (
	"time"

	"gorm.io/gorm"
)

// Project is a board shared by its members
type Project struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Description string          `gorm:"size:500" json:"description"`
	OwnerID     uint            `gorm:"index;not null" json:"owner_id"`
	Owner       *User           `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members     []ProjectMember `gorm:"foreignKey:ProjectID" json:"members"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// BeforeCreate makes sure the owner is saved as a member with the owner role.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	p.EnsureOwnerMember()
	return nil
}

// EnsureOwnerMember adds or corrects the owner's entry in the in-memory member list.
func (p *Project) EnsureOwnerMember() {
	for i := range p.Members {
		if p.Members[i].UserID == p.OwnerID {
			p.Members[i].Role = ProjectRoleOwner
			return
		}
	}
	p.Members = append([]ProjectMember{{
		UserID:   p.OwnerID,
		Role:     ProjectRoleOwner,
		JoinedAt: time.Now(),
	}}, p.Members...)
}

// HasMember reports whether userID appears in the loaded member list.
func (p *Project) HasMember(userID uint) bool {
	return p.Member(userID) != nil
}

// Member returns the loaded membership entry for userID, or nil.
func (p *Project) Member(userID uint) *ProjectMember {
	for i := range p.Members {
		if p.Members[i].UserID == userID {
			return &p.Members[i]
		}
	}
	return nil
}

// EnsureOwnerMembership repairs the owner row of a persisted project after its
// member rows changed.
func EnsureOwnerMembership(tx *gorm.DB, project *Project) error {
	var member ProjectMember
	err := tx.Where("project_id = ? AND user_id = ?", project.ID, project.OwnerID).
		Limit(1).Find(&member).Error
	if err != nil {
		return err
	}
	if member.ID == 0 {
		return tx.Create(&ProjectMember{
			ProjectID: project.ID,
			UserID:    project.OwnerID,
			Role:      ProjectRoleOwner,
			JoinedAt:  time.Now(),
		}).Error
	}
	if member.Role != ProjectRoleOwner {
		return tx.Model(&member).Update("role", ProjectRoleOwner).Error
	}
	return nil
}
