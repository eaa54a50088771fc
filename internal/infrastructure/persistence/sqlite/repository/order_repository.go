package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fallout/internal/domain/fallout"
	"fallout/internal/errs"
	"fallout/internal/infrastructure/persistence/sqlite/model"
	"fallout/internal/ports"
)

type OrderRepository struct {
	db *gorm.DB
}

var _ ports.OrderStore = (*OrderRepository)(nil)

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (fallout.Order, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return fallout.Order{}, err
	}
	return getOrderByID(db, orderID)
}

func (r *OrderRepository) GetAttachment(ctx context.Context, kind fallout.AttachmentKind, orderID string) (*fallout.Attachment, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	switch kind {
	case fallout.AttachmentESim:
		var row model.ESim
		if err := db.Where("order_id = ?", orderID).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, errs.Wrap(err, "query esim")
		}
		return mapESim(row)
	case fallout.AttachmentSwitch:
		var row model.Switch
		if err := db.Where("order_id = ?", orderID).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, errs.Wrap(err, "query switch")
		}
		return mapSwitch(row)
	default:
		return nil, fmt.Errorf("%w: %q", fallout.ErrInvalidAttachmentKind, kind)
	}
}

func (r *OrderRepository) ListOrders(ctx context.Context, filter ports.OrderFilter) ([]fallout.Order, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Category != fallout.CategoryNone {
		query = query.Where("fallout_category = ?", string(filter.Category))
	}
	if filter.EscalatedOnly {
		query = query.Where("escalated_at IS NOT NULL")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.Order
	if err := query.Order("order_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query orders")
	}
	return mapOrders(rows)
}

func (r *OrderRepository) GetFailedUnclaimed(ctx context.Context, now time.Time, limit int) ([]fallout.Order, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Order{}).
		Where("status = ?", string(fallout.StatusFailed)).
		Where("escalated_at IS NULL").
		Where("(workflow_owner = '' OR lease_expiry IS NULL OR lease_expiry <= ?)", model.FormatTime(now)).
		Order("updated_at asc").
		Order("order_id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query failed unclaimed orders")
	}
	return mapOrders(rows)
}

func (r *OrderRepository) Claim(ctx context.Context, orderID string, owner string, now time.Time, expiry time.Time) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(owner) == "" {
		return false, errors.New("lease owner is required")
	}

	result := db.Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Where("status = ?", string(fallout.StatusFailed)).
		Where("escalated_at IS NULL").
		Where("(workflow_owner = '' OR workflow_owner = ? OR lease_expiry IS NULL OR lease_expiry <= ?)", owner, model.FormatTime(now)).
		Updates(map[string]any{
			"workflow_owner": owner,
			"lease_expiry":   model.FormatTime(expiry),
		})
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "claim order")
	}
	return result.RowsAffected == 1, nil
}

func (r *OrderRepository) RenewLease(ctx context.Context, orderID string, owner string, now time.Time, expiry time.Time) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Order{}).
		Where("order_id = ? AND workflow_owner = ?", orderID, owner).
		Where("lease_expiry > ?", model.FormatTime(now)).
		Update("lease_expiry", model.FormatTime(expiry))
	if result.Error != nil {
		return errs.Wrap(result.Error, "renew lease")
	}
	if result.RowsAffected != 1 {
		return ports.ErrLeaseLost
	}
	return nil
}

func (r *OrderRepository) ReleaseLease(ctx context.Context, orderID string, owner string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Model(&model.Order{}).
		Where("order_id = ? AND workflow_owner = ?", orderID, owner).
		Updates(map[string]any{
			"workflow_owner": "",
			"lease_expiry":   nil,
		}).Error; err != nil {
		return errs.Wrap(err, "release lease")
	}
	return nil
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order fallout.Order, attachments []fallout.Attachment) (bool, error) {
	if ports.TxFromContext(ctx) != nil {
		db, err := r.dbFromContext(ctx)
		if err != nil {
			return false, err
		}

		row := toOrderRow(order)
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoNothing: true,
		}).Create(&row)
		if result.Error != nil {
			return false, errs.Wrap(result.Error, "insert order")
		}
		if result.RowsAffected == 0 {
			return false, nil
		}

		for _, attachment := range attachments {
			attachment.OrderID = order.OrderID
			if err := createAttachment(db, attachment); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	inserted := false
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := ports.WithTxContext(ctx, tx)
		ok, err := r.CreateOrder(txCtx, order, attachments)
		if err != nil {
			return err
		}
		inserted = ok
		return nil
	}); err != nil {
		return false, err
	}
	return inserted, nil
}

func (r *OrderRepository) UpdateOrder(ctx context.Context, orderID string, update ports.OrderUpdate) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	values := map[string]any{
		"updated_at": model.FormatTime(update.UpdatedAt),
	}
	if update.Status != nil {
		values["status"] = string(*update.Status)
	}
	if update.ClearCategory {
		values["fallout_category"] = nil
	} else if update.Category != nil {
		values["fallout_category"] = string(*update.Category)
	}
	if update.ClearResolvedBy {
		values["resolved_by"] = nil
	} else if update.ResolvedBy != nil {
		values["resolved_by"] = *update.ResolvedBy
	}
	if update.ResolutionTime != nil {
		values["resolution_time"] = model.FormatTime(*update.ResolutionTime)
	}
	if update.EscalatedAt != nil {
		values["escalated_at"] = model.FormatTime(*update.EscalatedAt)
	}

	result := db.Model(&model.Order{}).Where("order_id = ?", orderID).Updates(values)
	if result.Error != nil {
		return errs.Wrap(result.Error, "update order")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ports.ErrOrderNotFound, orderID)
	}
	return nil
}

func (r *OrderRepository) UpdateAttachment(ctx context.Context, kind fallout.AttachmentKind, attachmentID string, update ports.AttachmentUpdate) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	var result *gorm.DB
	switch kind {
	case fallout.AttachmentESim:
		values := map[string]any{"updated_at": model.FormatTime(update.UpdatedAt)}
		if update.Status != nil {
			values["status"] = *update.Status
		}
		if update.ActivationCode != nil {
			values["activation_code"] = *update.ActivationCode
		}
		if update.ProfileStatus != nil {
			values["profile_status"] = *update.ProfileStatus
		}
		result = db.Model(&model.ESim{}).Where("esim_id = ?", attachmentID).Updates(values)
	case fallout.AttachmentSwitch:
		values := map[string]any{"last_updated": model.FormatTime(update.UpdatedAt)}
		if update.Status != nil {
			values["config_status"] = *update.Status
		}
		result = db.Model(&model.Switch{}).Where("switch_id = ?", attachmentID).Updates(values)
	default:
		return fmt.Errorf("%w: %q", fallout.ErrInvalidAttachmentKind, kind)
	}

	if result.Error != nil {
		return errs.Wrapf(result.Error, "update %s %s", kind, attachmentID)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s %s not found", kind, attachmentID)
	}
	return nil
}

func (r *OrderRepository) AppendLog(ctx context.Context, entry fallout.LogEntry) (fallout.LogEntry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return fallout.LogEntry{}, err
	}

	row := model.FalloutLog{
		LogID:       entry.LogID,
		OrderID:     entry.OrderID,
		EventType:   string(entry.EventType),
		Description: entry.Description,
		Timestamp:   model.FormatTime(entry.Timestamp),
	}
	if err := db.Create(&row).Error; err != nil {
		return fallout.LogEntry{}, errs.Wrap(err, "insert fallout log")
	}
	entry.Seq = row.Seq
	return entry, nil
}

func (r *OrderRepository) GetLogs(ctx context.Context, orderID string) ([]fallout.LogEntry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.FalloutLog
	if err := db.
		Where("order_id = ?", orderID).
		Order("timestamp asc").
		Order("seq asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query fallout logs")
	}
	return mapLogs(rows)
}

func (r *OrderRepository) ListLogsAfter(ctx context.Context, afterSeq uint64, limit int) ([]fallout.LogEntry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.FalloutLog{}).Where("seq > ?", afterSeq).Order("seq asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.FalloutLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query fallout logs")
	}
	return mapLogs(rows)
}

func (r *OrderRepository) CountOrders(ctx context.Context) ([]ports.OrderCount, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	type countRow struct {
		Status          string
		FalloutCategory *string
		Escalated       bool
		Total           int64
	}

	var rows []countRow
	if err := db.Model(&model.Order{}).
		Select("status, fallout_category, escalated_at IS NOT NULL AS escalated, count(*) AS total").
		Group("status, fallout_category, escalated").
		Order("status asc").
		Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "count orders")
	}

	items := make([]ports.OrderCount, 0, len(rows))
	for _, row := range rows {
		item := ports.OrderCount{
			Status:    fallout.Status(row.Status),
			Escalated: row.Escalated,
			Count:     row.Total,
		}
		if row.FalloutCategory != nil {
			item.Category = fallout.Category(*row.FalloutCategory)
		}
		items = append(items, item)
	}
	return items, nil
}

func getOrderByID(db *gorm.DB, orderID string) (fallout.Order, error) {
	var row model.Order
	if err := db.Where("order_id = ?", orderID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fallout.Order{}, fmt.Errorf("%w: %s", ports.ErrOrderNotFound, orderID)
		}
		return fallout.Order{}, errs.Wrap(err, "query order")
	}
	return mapOrder(row)
}

func createAttachment(db *gorm.DB, attachment fallout.Attachment) error {
	updatedAt := model.FormatTime(attachment.UpdatedAt)
	switch attachment.Kind {
	case fallout.AttachmentESim:
		row := model.ESim{
			ESimID:        attachment.AttachmentID,
			OrderID:       attachment.OrderID,
			ICCID:         attachment.ICCID,
			EID:           attachment.EID,
			Status:        attachment.Status,
			ProfileStatus: attachment.ProfileStatus,
			UpdatedAt:     updatedAt,
		}
		if code := strings.TrimSpace(attachment.ActivationCode); code != "" {
			row.ActivationCode = &code
		}
		if err := db.Create(&row).Error; err != nil {
			return errs.Wrapf(err, "insert esim %s", attachment.AttachmentID)
		}
	case fallout.AttachmentSwitch:
		row := model.Switch{
			SwitchID:     attachment.AttachmentID,
			OrderID:      attachment.OrderID,
			SwitchName:   attachment.SwitchName,
			PortID:       attachment.PortID,
			ConfigStatus: attachment.Status,
			LastUpdated:  updatedAt,
		}
		if err := db.Create(&row).Error; err != nil {
			return errs.Wrapf(err, "insert switch %s", attachment.AttachmentID)
		}
	default:
		return fmt.Errorf("%w: %q", fallout.ErrInvalidAttachmentKind, attachment.Kind)
	}
	return nil
}
