package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// AddressUsecase は住所帳の管理。注文側はスナップショットを持つので、
// ここでの編集・削除は過去の注文に影響しない。
type AddressUsecase struct {
	addresses repo.AddressRepository
}

func NewAddressUsecase(addresses repo.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addresses: addresses}
}

type AddressInput struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	IsDefault  bool   `json:"is_default"`
}

func (in AddressInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid name")
	}
	if strings.TrimSpace(in.Line1) == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid line1")
	}
	if strings.TrimSpace(in.City) == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid city")
	}
	return nil
}

// Create は住所の追加。IsDefaultが立っていれば他のデフォルトを下ろす。
func (u *AddressUsecase) Create(ctx context.Context, userID int64, in AddressInput) (model.Address, error) {
	if err := in.validate(); err != nil {
		return model.Address{}, err
	}

	addr, err := u.addresses.Create(ctx, model.Address{
		UserID:     userID,
		Name:       strings.TrimSpace(in.Name),
		Phone:      strings.TrimSpace(in.Phone),
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      strings.TrimSpace(in.Line2),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
	})
	if err != nil {
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if in.IsDefault {
		if err := u.addresses.SetDefault(ctx, userID, addr.ID); err != nil {
			return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		addr.IsDefault = true
	}
	return addr, nil
}

// List は自分の住所一覧。
func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]model.Address, error) {
	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return list, nil
}

// Update は住所の更新。他人の住所は404（存在も漏らさない）。
func (u *AddressUsecase) Update(ctx context.Context, userID int64, addressID int64, in AddressInput) (model.Address, error) {
	if err := in.validate(); err != nil {
		return model.Address{}, err
	}
	if err := u.requireOwnership(ctx, userID, addressID); err != nil {
		return model.Address{}, err
	}

	addr, err := u.addresses.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Address{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	addr.Name = strings.TrimSpace(in.Name)
	addr.Phone = strings.TrimSpace(in.Phone)
	addr.Line1 = strings.TrimSpace(in.Line1)
	addr.Line2 = strings.TrimSpace(in.Line2)
	addr.City = strings.TrimSpace(in.City)
	addr.State = strings.TrimSpace(in.State)
	addr.PostalCode = strings.TrimSpace(in.PostalCode)

	if err := u.addresses.Update(ctx, addr); err != nil {
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if in.IsDefault && !addr.IsDefault {
		if err := u.addresses.SetDefault(ctx, userID, addr.ID); err != nil {
			return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		addr.IsDefault = true
	}
	return addr, nil
}

// Delete は住所の削除。
func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if err := u.requireOwnership(ctx, userID, addressID); err != nil {
		return err
	}
	if err := u.addresses.Delete(ctx, addressID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// SetDefault はデフォルト住所の切り替え。
func (u *AddressUsecase) SetDefault(ctx context.Context, userID int64, addressID int64) error {
	if err := u.requireOwnership(ctx, userID, addressID); err != nil {
		return err
	}
	if err := u.addresses.SetDefault(ctx, userID, addressID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *AddressUsecase) requireOwnership(ctx context.Context, userID int64, addressID int64) error {
	owned, err := u.addresses.IsOwnedByUser(ctx, addressID, userID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !owned {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	return nil
}
