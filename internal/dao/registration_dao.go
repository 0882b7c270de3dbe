package dao

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/grand-thief-cash/resurrector/bundle"
	"github.com/grand-thief-cash/resurrector/internal/application/components/gormdb"
	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
	"github.com/grand-thief-cash/resurrector/internal/application/consts"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
	bizConsts "github.com/grand-thief-cash/resurrector/internal/consts"
	"github.com/grand-thief-cash/resurrector/model"
)

// ErrStore wraps every failure of the persistent store.
var ErrStore = errors.New("registration store failure")

var tracer = otel.Tracer("github.com/grand-thief-cash/resurrector/internal/dao")

// RegistrationDao persists registrations and their event-key links.
type RegistrationDao interface {
	core.Component

	// InitializeSchema creates the relations if absent. It is idempotent.
	InitializeSchema(ctx context.Context) error
	// Upsert replaces the registration for req.Identity together with all of its links, atomically.
	Upsert(ctx context.Context, req model.RegistrationRequest) error
	// LoadAll reads a consistent snapshot of every registration.
	LoadAll(ctx context.Context) ([]model.RegistrationRequest, error)
}

type registrationDaoImpl struct {
	*core.BaseComponent
	GormComp *gormdb.GormComponent `infra:"dep:gorm"`
	db       *gorm.DB
	dsName   string
}

func NewRegistrationDao(dsName string) RegistrationDao {
	return &registrationDaoImpl{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_DAO_REGISTRATION, consts.COMPONENT_LOGGING),
		dsName:        dsName,
	}
}

// NewRegistrationDaoWithDB binds the dao to an open handle; Start is then a no-op lookup.
func NewRegistrationDaoWithDB(db *gorm.DB) RegistrationDao {
	d := NewRegistrationDao("").(*registrationDaoImpl)
	d.db = db
	return d
}

func (d *registrationDaoImpl) Start(ctx context.Context) error {
	if err := d.BaseComponent.Start(ctx); err != nil {
		return err
	}
	if d.db != nil {
		return nil
	}
	if d.GormComp == nil {
		return fmt.Errorf("registration_dao: gorm component not injected")
	}
	db, err := d.GormComp.GetDB(d.dsName)
	if err != nil {
		return fmt.Errorf("get gorm db %s failed: %w", d.dsName, err)
	}
	d.db = db
	return nil
}

func (d *registrationDaoImpl) InitializeSchema(ctx context.Context) error {
	if err := d.db.WithContext(ctx).AutoMigrate(&registrationRow{}, &notifierLinkRow{}); err != nil {
		return fmt.Errorf("%w: initialize schema: %w", ErrStore, err)
	}
	return nil
}

func (d *registrationDaoImpl) Upsert(ctx context.Context, req model.RegistrationRequest) (err error) {
	ctx, span := tracer.Start(ctx, "registration.upsert")
	span.SetAttributes(attribute.String("identity", req.Identity.String()))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	row, err := toRow(req)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrStore, req.Identity, err)
	}
	keys := req.EventKeys()
	links := make([]notifierLinkRow, 0, len(keys))
	for _, k := range keys {
		links = append(links, notifierLinkRow{
			IdentityNamespace: row.IdentityNamespace,
			IdentityName:      row.IdentityName,
			EventKey:          k,
		})
	}

	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Where("identity_namespace = ? AND identity_name = ?", row.IdentityNamespace, row.IdentityName).
			Delete(&notifierLinkRow{}).Error; err != nil {
			return err
		}
		return tx.Create(&links).Error
	})
	if err != nil {
		logging.Error(ctx, "registration upsert failed", zap.Stringer("identity", req.Identity), zap.Error(err))
		return fmt.Errorf("%w: upsert %s: %w", ErrStore, req.Identity, err)
	}
	return nil
}

func (d *registrationDaoImpl) LoadAll(ctx context.Context) (_ []model.RegistrationRequest, err error) {
	ctx, span := tracer.Start(ctx, "registration.load_all")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var (
		links []notifierLinkRow
		rows  []registrationRow
	)
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("identity_namespace, identity_name, event_key").Find(&links).Error; err != nil {
			return err
		}
		return tx.Find(&rows).Error
	})
	if err != nil {
		logging.Error(ctx, "registration load failed", zap.Error(err))
		return nil, fmt.Errorf("%w: load: %w", ErrStore, err)
	}

	byID := make(map[model.Identity]registrationRow, len(rows))
	for _, r := range rows {
		byID[model.Identity{Namespace: r.IdentityNamespace, Name: r.IdentityName}] = r
	}
	keysByID := make(map[model.Identity][]string)
	var order []model.Identity
	for _, l := range links {
		id := model.Identity{Namespace: l.IdentityNamespace, Name: l.IdentityName}
		if _, seen := keysByID[id]; !seen {
			order = append(order, id)
		}
		keysByID[id] = append(keysByID[id], l.EventKey)
	}

	out := make([]model.RegistrationRequest, 0, len(order))
	for _, id := range order {
		row, ok := byID[id]
		if !ok {
			logging.Warn(ctx, "notifier links without registration row", zap.Stringer("identity", id))
			continue
		}
		out = append(out, fromRow(ctx, row, keysByID[id]))
	}
	span.SetAttributes(attribute.Int("registrations", len(out)))
	return out, nil
}

func toRow(req model.RegistrationRequest) (registrationRow, error) {
	row := registrationRow{
		IdentityNamespace: req.Identity.Namespace,
		IdentityName:      req.Identity.Name,
		EndpointKind:      string(req.EndpointKind),
	}
	if req.ActivationAction != "" {
		action := req.ActivationAction
		row.ActivationAction = &action
	}
	if req.Payload != nil {
		b, err := req.Payload.MarshalBinary()
		if err != nil {
			return row, err
		}
		row.Payload = b
	}
	return row, nil
}

// fromRow rebuilds a request; an undecodable payload is logged and left absent.
func fromRow(ctx context.Context, row registrationRow, keys []string) model.RegistrationRequest {
	req := model.RegistrationRequest{
		Identity:     model.Identity{Namespace: row.IdentityNamespace, Name: row.IdentityName},
		EndpointKind: model.EndpointKind(row.EndpointKind),
		NotifyOn:     keys,
	}
	if row.ActivationAction != nil {
		req.ActivationAction = *row.ActivationAction
	}
	if row.Payload != nil {
		var b bundle.Bundle
		if err := b.UnmarshalBinary(row.Payload); err != nil {
			logging.Warn(ctx, "stored payload undecodable, loading without payload",
				zap.Stringer("identity", req.Identity), zap.Error(err))
		} else {
			req.Payload = b
		}
	}
	return req.Normalized()
}
