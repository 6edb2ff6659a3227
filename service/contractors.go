package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"civicresolve/lifecycle"
	"civicresolve/models"
	"civicresolve/notify"
	"civicresolve/repository"
)

// ContractorService manages contractor registration and approval.
type ContractorService struct {
	repo     repository.ContractorRepository
	engine   *lifecycle.Engine
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewContractorService(repos repository.Repositories, opts ...Option) *ContractorService {
	o := apply(opts)
	return &ContractorService{repo: repos.Contractors, engine: o.engine, notifier: o.notifier, logger: o.logger, now: o.now}
}

// Session completes a token identity: contractor sessions get the id of
// their contractor profile, when they have one.
func (s *ContractorService) Session(ctx context.Context, userID string, actor lifecycle.Actor) (lifecycle.Session, error) {
	sess := lifecycle.Session{UserID: userID, Actor: actor}
	if actor != lifecycle.ActorContractor {
		return sess, nil
	}
	c, err := s.repo.FindContractorByUser(ctx, userID)
	switch {
	case err == nil:
		sess.ContractorID = c.ID
	case !errors.Is(err, repository.ErrNotFound):
		return sess, fmt.Errorf("load contractor profile of %s: %w", userID, err)
	}
	return sess, nil
}

// Register creates the unapproved contractor profile of the session's user.
func (s *ContractorService) Register(ctx context.Context, sess lifecycle.Session, profile models.Contractor) (models.Contractor, error) {
	if err := s.engine.Authorize(sess, lifecycle.CapRegisterContractor); err != nil {
		return models.Contractor{}, err
	}
	if err := lifecycle.ValidateContractor(profile); err != nil {
		return models.Contractor{}, err
	}
	profile.ID = ""
	profile.UserID = sess.UserID
	profile.Approved = false
	profile.CreatedAt = s.now()
	if err := s.repo.InsertContractor(ctx, &profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.Contractor{}, fmt.Errorf("contractor profile of %s: %w", sess.UserID, lifecycle.ErrAlreadyExists)
		}
		return models.Contractor{}, fmt.Errorf("insert contractor: %w", err)
	}
	s.logger.Info("contractor registered", "contractor", profile.ID, "user", sess.UserID)
	return profile, nil
}

// Profile returns the contractor profile of the session's user.
func (s *ContractorService) Profile(ctx context.Context, sess lifecycle.Session) (models.Contractor, error) {
	c, err := s.repo.FindContractorByUser(ctx, sess.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Contractor{}, fmt.Errorf("contractor profile of %s: %w", sess.UserID, lifecycle.ErrUnknownContractor)
	}
	return c, err
}

func (s *ContractorService) list(ctx context.Context, sess lifecycle.Session, approved *bool) ([]models.Contractor, error) {
	if err := s.engine.Authorize(sess, lifecycle.CapManageContractors); err != nil {
		return nil, err
	}
	out, err := s.repo.FindContractors(ctx, approved)
	if err != nil {
		return nil, fmt.Errorf("list contractors: %w", err)
	}
	return out, nil
}

// ListContractors returns every contractor, approved or not.
func (s *ContractorService) ListContractors(ctx context.Context, sess lifecycle.Session) ([]models.Contractor, error) {
	return s.list(ctx, sess, nil)
}

func (s *ContractorService) ApprovedContractors(ctx context.Context, sess lifecycle.Session) ([]models.Contractor, error) {
	approved := true
	return s.list(ctx, sess, &approved)
}

func (s *ContractorService) PendingContractors(ctx context.Context, sess lifecycle.Session) ([]models.Contractor, error) {
	approved := false
	return s.list(ctx, sess, &approved)
}

// Approve makes a contractor eligible for assignment.
func (s *ContractorService) Approve(ctx context.Context, sess lifecycle.Session, id string) (models.Contractor, error) {
	if err := s.engine.Authorize(sess, lifecycle.CapManageContractors); err != nil {
		return models.Contractor{}, err
	}
	if err := s.repo.SetApproved(ctx, id, true); err != nil {
		return models.Contractor{}, s.missing(id, err)
	}
	c, err := s.repo.FindContractor(ctx, id)
	if err != nil {
		return models.Contractor{}, s.missing(id, err)
	}
	s.logger.Info("contractor approved", "contractor", id)
	send(ctx, s.notifier, s.logger, notify.Event{
		Kind:         notify.ContractorApproved,
		Recipient:    c.UserID,
		ContractorID: c.ID,
		At:           s.now(),
	})
	return c, nil
}

// Remove deletes a contractor profile. Issues already assigned keep the id.
func (s *ContractorService) Remove(ctx context.Context, sess lifecycle.Session, id string) error {
	if err := s.engine.Authorize(sess, lifecycle.CapManageContractors); err != nil {
		return err
	}
	if err := s.repo.DeleteContractor(ctx, id); err != nil {
		return s.missing(id, err)
	}
	s.logger.Info("contractor removed", "contractor", id)
	return nil
}

func (s *ContractorService) missing(id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("contractor %s: %w", id, lifecycle.ErrUnknownContractor)
	}
	return fmt.Errorf("contractor %s: %w", id, err)
}
