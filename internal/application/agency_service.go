package application

import (
	"context"
	"fmt"

	"github.com/sanosuguru/go-travel-booking/internal/domain/agency"
)

// AgencyService は代理店の登録・参照を提供する
type AgencyService struct {
	agencyRepo agency.Repository
}

func NewAgencyService(ar agency.Repository) *AgencyService {
	return &AgencyService{agencyRepo: ar}
}

type CreateAgencyInput struct {
	OwnerID  string
	Name     string
	Email    string
	Phone    string
	Location string
}

func (s *AgencyService) CreateAgency(ctx context.Context, input CreateAgencyInput) (*agency.Agency, error) {
	a := agency.NewAgency(input.OwnerID, input.Name, input.Email, input.Phone, input.Location)
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.agencyRepo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AgencyService) GetAgency(ctx context.Context, id string) (*agency.Agency, error) {
	return s.agencyRepo.GetByID(ctx, id)
}

func (s *AgencyService) GetAgencyByOwner(ctx context.Context, ownerID string) (*agency.Agency, error) {
	return s.agencyRepo.GetByOwnerID(ctx, ownerID)
}

type UpdateAgencyInput struct {
	ID       string
	Name     string
	Email    string
	Phone    string
	Location string
}

func (s *AgencyService) UpdateAgency(ctx context.Context, input UpdateAgencyInput) (*agency.Agency, error) {
	a, err := s.agencyRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	a.Name = input.Name
	a.Email = input.Email
	a.Phone = input.Phone
	a.Location = input.Location
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.agencyRepo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
