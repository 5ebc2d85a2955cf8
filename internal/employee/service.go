package employee

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/apiclient"
	"github.com/frahmantamala/employee-portal/internal/core/common/validation"
	"github.com/frahmantamala/employee-portal/internal/core/events"
	"github.com/frahmantamala/employee-portal/internal/resource"
)

type Service struct {
	api     API
	records *resource.Context[Employee]
	logger  *slog.Logger
}

func NewService(api API, logger *slog.Logger) *Service {
	return &Service{
		api:     api,
		records: resource.New("employees", Employee.Key, logger),
		logger:  logger,
	}
}

// Records exposes the cached employee list with its loading and error state.
func (s *Service) Records() *resource.Context[Employee] {
	return s.records
}

func (s *Service) RegisterEventHandlers(bus *events.EventBus) {
	s.records.RegisterEventHandlers(bus)
}

func path(userCode internal.Code, suffix string) string {
	return "/employee/" + url.PathEscape(userCode.String()) + suffix
}

func (s *Service) List(ctx context.Context) ([]Employee, error) {
	employees, err := s.records.FetchAll(ctx, func(ctx context.Context) ([]Employee, error) {
		var out []Employee
		if err := s.api.Do(ctx, http.MethodGet, "/employee", nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list employees", "error", err)
		return nil, err
	}

	s.logger.DebugContext(ctx, "retrieved employees", "count", len(employees))
	return employees, nil
}

func (s *Service) Get(ctx context.Context, userCode internal.Code) (Employee, error) {
	if userCode.IsZero() {
		return Employee{}, internal.NewValidationFieldError("userCode", "userCode is required", internal.ErrCodeValidationFailed)
	}
	return s.records.FetchOne(ctx, func(ctx context.Context) (Employee, error) {
		var out Employee
		err := s.api.Do(ctx, http.MethodGet, path(userCode, ""), nil, &out)
		return out, err
	})
}

// Create adds an employee and then reloads the whole list. A failed reload
// does not fail the creation; it is recorded in the error slot.
func (s *Service) Create(ctx context.Context, dto CreateEmployeeDTO) (Employee, error) {
	if err := validation.Struct(dto); err != nil {
		return Employee{}, err
	}

	var created Employee
	err := s.records.Run(ctx, func(ctx context.Context) error {
		return s.api.Do(ctx, http.MethodPost, "/employee", dto, &created)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create employee", "username", dto.Username, "error", err)
		return Employee{}, err
	}
	s.logger.InfoContext(ctx, "employee created", "username", dto.Username, "user_code", created.UserCode)

	if _, err := s.List(ctx); err != nil {
		s.logger.WarnContext(ctx, "employee list refresh after create failed", "error", err)
	}
	return created, nil
}

// UploadAvatar sends the image as the multipart field "avatar".
func (s *Service) UploadAvatar(ctx context.Context, userCode internal.Code, filename string, content io.Reader) error {
	if strings.TrimSpace(filename) == "" {
		return internal.NewValidationFieldError("filename", "filename is required", internal.ErrCodeValidationFailed)
	}
	if content == nil {
		return internal.NewValidationFieldError("avatar", "avatar is required", internal.ErrCodeValidationFailed)
	}

	form := apiclient.NewForm().File("avatar", filename, content)
	err := s.records.Run(ctx, func(ctx context.Context) error {
		return s.api.Upload(ctx, http.MethodPost, path(userCode, "/avatar"), form, nil)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to upload avatar", "user_code", userCode, "error", err)
		return err
	}
	return nil
}

// UpdateStatus changes the active flag on the server and then on the cached
// record with the same userCode only.
func (s *Service) UpdateStatus(ctx context.Context, userCode internal.Code, active bool) error {
	err := s.records.MutateField(ctx, userCode,
		func(ctx context.Context) error {
			return s.api.Do(ctx, http.MethodPut, path(userCode, "/status"), updateStatusRequest{Active: active}, nil)
		},
		func(e *Employee) { e.Active = active },
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to update employee status", "user_code", userCode, "active", active, "error", err)
		return err
	}
	s.logger.InfoContext(ctx, "employee status updated", "user_code", userCode, "active", active)
	return nil
}
