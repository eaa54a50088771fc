package repository

import (
	"fallout/internal/domain/fallout"
	"fallout/internal/errs"
	"fallout/internal/infrastructure/persistence/sqlite/model"
)

func toOrderRow(order fallout.Order) model.Order {
	row := model.Order{
		OrderID:        order.OrderID,
		CustomerID:     order.CustomerID,
		ServiceType:    string(order.ServiceType),
		Status:         string(order.Status),
		CreatedAt:      model.FormatTime(order.CreatedAt),
		UpdatedAt:      model.FormatTime(order.UpdatedAt),
		ResolutionTime: model.FormatTimePtr(order.ResolutionTime),
		WorkflowOwner:  order.WorkflowOwner,
		LeaseExpiry:    model.FormatTimePtr(order.LeaseExpiry),
		EscalatedAt:    model.FormatTimePtr(order.EscalatedAt),
	}
	if order.Category != fallout.CategoryNone {
		category := string(order.Category)
		row.FalloutCategory = &category
	}
	if order.ResolvedBy != "" {
		resolvedBy := order.ResolvedBy
		row.ResolvedBy = &resolvedBy
	}
	return row
}

func mapOrder(row model.Order) (fallout.Order, error) {
	createdAt, err := model.ParseTime(row.CreatedAt)
	if err != nil {
		return fallout.Order{}, errs.Wrapf(err, "parse created_at of order %s", row.OrderID)
	}
	updatedAt, err := model.ParseTime(row.UpdatedAt)
	if err != nil {
		return fallout.Order{}, errs.Wrapf(err, "parse updated_at of order %s", row.OrderID)
	}
	resolutionTime, err := model.ParseTimePtr(row.ResolutionTime)
	if err != nil {
		return fallout.Order{}, errs.Wrapf(err, "parse resolution_time of order %s", row.OrderID)
	}
	leaseExpiry, err := model.ParseTimePtr(row.LeaseExpiry)
	if err != nil {
		return fallout.Order{}, errs.Wrapf(err, "parse lease_expiry of order %s", row.OrderID)
	}
	escalatedAt, err := model.ParseTimePtr(row.EscalatedAt)
	if err != nil {
		return fallout.Order{}, errs.Wrapf(err, "parse escalated_at of order %s", row.OrderID)
	}

	order := fallout.Order{
		OrderID:        row.OrderID,
		CustomerID:     row.CustomerID,
		ServiceType:    fallout.ServiceType(row.ServiceType),
		Status:         fallout.Status(row.Status),
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
		ResolutionTime: resolutionTime,
		WorkflowOwner:  row.WorkflowOwner,
		LeaseExpiry:    leaseExpiry,
		EscalatedAt:    escalatedAt,
	}
	if row.FalloutCategory != nil {
		order.Category = fallout.Category(*row.FalloutCategory)
	}
	if row.ResolvedBy != nil {
		order.ResolvedBy = *row.ResolvedBy
	}
	return order, nil
}

func mapOrders(rows []model.Order) ([]fallout.Order, error) {
	items := make([]fallout.Order, 0, len(rows))
	for _, row := range rows {
		order, err := mapOrder(row)
		if err != nil {
			return nil, err
		}
		items = append(items, order)
	}
	return items, nil
}

func mapESim(row model.ESim) (*fallout.Attachment, error) {
	updatedAt, err := model.ParseTime(row.UpdatedAt)
	if err != nil {
		return nil, errs.Wrapf(err, "parse updated_at of esim %s", row.ESimID)
	}
	attachment := &fallout.Attachment{
		Kind:          fallout.AttachmentESim,
		AttachmentID:  row.ESimID,
		OrderID:       row.OrderID,
		Status:        row.Status,
		UpdatedAt:     updatedAt,
		ICCID:         row.ICCID,
		EID:           row.EID,
		ProfileStatus: row.ProfileStatus,
	}
	if row.ActivationCode != nil {
		attachment.ActivationCode = *row.ActivationCode
	}
	return attachment, nil
}

func mapSwitch(row model.Switch) (*fallout.Attachment, error) {
	updatedAt, err := model.ParseTime(row.LastUpdated)
	if err != nil {
		return nil, errs.Wrapf(err, "parse last_updated of switch %s", row.SwitchID)
	}
	return &fallout.Attachment{
		Kind:         fallout.AttachmentSwitch,
		AttachmentID: row.SwitchID,
		OrderID:      row.OrderID,
		Status:       row.ConfigStatus,
		UpdatedAt:    updatedAt,
		SwitchName:   row.SwitchName,
		PortID:       row.PortID,
	}, nil
}

func mapLogs(rows []model.FalloutLog) ([]fallout.LogEntry, error) {
	items := make([]fallout.LogEntry, 0, len(rows))
	for _, row := range rows {
		ts, err := model.ParseTime(row.Timestamp)
		if err != nil {
			return nil, errs.Wrapf(err, "parse timestamp of log %s", row.LogID)
		}
		items = append(items, fallout.LogEntry{
			Seq:         row.Seq,
			LogID:       row.LogID,
			OrderID:     row.OrderID,
			EventType:   fallout.EventType(row.EventType),
			Description: row.Description,
			Timestamp:   ts,
		})
	}
	return items, nil
}
