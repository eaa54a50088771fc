package fallout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"fallout/internal/bootstrap/logging"
	domain "fallout/internal/domain/fallout"
	"fallout/internal/errs"
)

type importFile struct {
	Orders []importOrder `yaml:"orders" validate:"required,min=1,dive"`
}

type importOrder struct {
	OrderID         string        `yaml:"order_id" validate:"required"`
	CustomerID      string        `yaml:"customer_id" validate:"required"`
	ServiceType     string        `yaml:"service_type" validate:"required"`
	Status          string        `yaml:"status" validate:"required"`
	FalloutCategory string        `yaml:"fallout_category"`
	ResolvedBy      string        `yaml:"resolved_by"`
	CreatedAt       *time.Time    `yaml:"created_at"`
	ESim            *importESim   `yaml:"esim" validate:"omitempty"`
	Switch          *importSwitch `yaml:"switch" validate:"omitempty"`
}

type importESim struct {
	ESimID         string `yaml:"esim_id" validate:"required"`
	ICCID          string `yaml:"iccid"`
	EID            string `yaml:"eid"`
	Status         string `yaml:"status" validate:"required,oneof=Active Failed Reprovisioned"`
	ProfileStatus  string `yaml:"profile_status"`
	ActivationCode string `yaml:"activation_code"`
}

type importSwitch struct {
	SwitchID     string `yaml:"switch_id" validate:"required"`
	SwitchName   string `yaml:"switch_name"`
	PortID       string `yaml:"port_id"`
	ConfigStatus string `yaml:"config_status" validate:"required"`
}

type ImportSummary struct {
	Created []string
	Skipped []string
}

// ImportOrders loads orders and their attachments from a YAML document.
// Orders whose id already exists are left untouched and reported as skipped.
// The whole document is validated before anything is written.
func (s *Service) ImportOrders(ctx context.Context, r io.Reader) (ImportSummary, error) {
	if ctx == nil {
		return ImportSummary{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ImportSummary{}, errs.Wrap(err, "check context")
	}
	if r == nil {
		return ImportSummary{}, errors.New("import reader is required")
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return ImportSummary{}, errs.Wrap(err, "read import document")
	}
	var doc importFile
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return ImportSummary{}, errs.Wrap(err, "decode import document")
	}
	if err := validator.New().Struct(doc); err != nil {
		return ImportSummary{}, errs.Wrap(err, "validate import document")
	}

	now := s.now().UTC()
	type pending struct {
		order       domain.Order
		attachments []domain.Attachment
	}
	seen := make(map[string]struct{}, len(doc.Orders))
	batch := make([]pending, 0, len(doc.Orders))
	for i, item := range doc.Orders {
		order, attachments, err := item.toDomain(now)
		if err != nil {
			return ImportSummary{}, fmt.Errorf("orders[%d]: %w", i, err)
		}
		if _, dup := seen[order.OrderID]; dup {
			return ImportSummary{}, fmt.Errorf("orders[%d]: duplicate order id %s", i, order.OrderID)
		}
		seen[order.OrderID] = struct{}{}
		batch = append(batch, pending{order: order, attachments: attachments})
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "fallout.import"))
	var summary ImportSummary
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		for _, p := range batch {
			created, err := s.store.CreateOrder(txCtx, p.order, p.attachments)
			if err != nil {
				return errs.Wrapf(err, "create order %s", p.order.OrderID)
			}
			if created {
				summary.Created = append(summary.Created, p.order.OrderID)
			} else {
				summary.Skipped = append(summary.Skipped, p.order.OrderID)
			}
		}
		return nil
	})
	if err != nil {
		return ImportSummary{}, err
	}

	logging.Info(logCtx, "orders imported", slog.Int("created", len(summary.Created)), slog.Int("skipped", len(summary.Skipped)))
	return summary, nil
}

func (o importOrder) toDomain(now time.Time) (domain.Order, []domain.Attachment, error) {
	status, err := domain.ParseStatus(o.Status)
	if err != nil {
		return domain.Order{}, nil, err
	}
	serviceType, err := domain.ParseServiceType(o.ServiceType)
	if err != nil {
		return domain.Order{}, nil, err
	}

	createdAt := now
	if o.CreatedAt != nil {
		createdAt = o.CreatedAt.UTC()
	}
	order := domain.Order{
		OrderID:     strings.TrimSpace(o.OrderID),
		CustomerID:  strings.TrimSpace(o.CustomerID),
		ServiceType: serviceType,
		Status:      status,
		ResolvedBy:  strings.TrimSpace(o.ResolvedBy),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if strings.TrimSpace(o.FalloutCategory) != "" {
		category, _ := domain.ParseCategory(o.FalloutCategory)
		order.Category = category
	}
	if order.Status == domain.StatusCompleted {
		order.ResolutionTime = &createdAt
	}
	if err := domain.ValidateOrder(order); err != nil {
		return domain.Order{}, nil, err
	}

	var attachments []domain.Attachment
	if o.ESim != nil {
		a := domain.Attachment{
			Kind:           domain.AttachmentESim,
			AttachmentID:   strings.TrimSpace(o.ESim.ESimID),
			OrderID:        order.OrderID,
			Status:         o.ESim.Status,
			UpdatedAt:      createdAt,
			ICCID:          o.ESim.ICCID,
			EID:            o.ESim.EID,
			ProfileStatus:  o.ESim.ProfileStatus,
			ActivationCode: o.ESim.ActivationCode,
		}
		if err := domain.ValidateAttachment(a); err != nil {
			return domain.Order{}, nil, err
		}
		attachments = append(attachments, a)
	}
	if o.Switch != nil {
		a := domain.Attachment{
			Kind:         domain.AttachmentSwitch,
			AttachmentID: strings.TrimSpace(o.Switch.SwitchID),
			OrderID:      order.OrderID,
			Status:       o.Switch.ConfigStatus,
			UpdatedAt:    createdAt,
			SwitchName:   o.Switch.SwitchName,
			PortID:       o.Switch.PortID,
		}
		if err := domain.ValidateAttachment(a); err != nil {
			return domain.Order{}, nil, err
		}
		attachments = append(attachments, a)
	}
	return order, attachments, nil
}
