// Package seed loads an initial whitelist from a TOML file at startup.
//
//	[[beneficiaries]]
//	address = "0x..."
//
//	[[merchants]]
//	address  = "0x..."
//	category = "FOOD"
//	name     = "Corner Grocer"
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"purposepay/internal/registry/models"
	"purposepay/internal/registry/service"
	id "purposepay/pkg/domain"
	"purposepay/pkg/requestcontext"
)

type File struct {
	Beneficiaries []Beneficiary `toml:"beneficiaries"`
	Merchants     []Merchant    `toml:"merchants"`
}

type Beneficiary struct {
	Address string `toml:"address"`
}

type Merchant struct {
	Address  string `toml:"address"`
	Category string `toml:"category"`
	Name     string `toml:"name"`
}

// Registrar is the subset of the registry service the seed applies through.
type Registrar interface {
	AddBeneficiary(ctx context.Context, addr id.Address) (*models.Beneficiary, error)
	AddMerchant(ctx context.Context, addr id.Address, category models.Category, name string) (*models.Merchant, error)
}

// Result counts what Apply created and what was already present.
type Result struct {
	Beneficiaries int
	Merchants     int
	Skipped       int
}

func Load(path string) (*File, error) {
	var f File
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return checkUndecoded(&f, meta)
}

func Parse(data string) (*File, error) {
	var f File
	meta, err := toml.Decode(data, &f)
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return checkUndecoded(&f, meta)
}

func checkUndecoded(f *File, meta toml.MetaData) (*File, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown seed keys: %s", strings.Join(keys, ", "))
	}
	return f, nil
}

// Apply registers every entry as admin. Entries that already exist are
// skipped so the seed can run on every start against a persistent store.
// Everything is parsed before the first write.
func (f *File) Apply(ctx context.Context, registrar Registrar, admin id.Address) (Result, error) {
	type parsedMerchant struct {
		addr     id.Address
		category models.Category
		name     string
	}

	beneficiaries := make([]id.Address, 0, len(f.Beneficiaries))
	for i, b := range f.Beneficiaries {
		addr, err := id.ParseAddress(b.Address)
		if err != nil {
			return Result{}, fmt.Errorf("beneficiaries[%d]: %w", i, err)
		}
		beneficiaries = append(beneficiaries, addr)
	}
	merchants := make([]parsedMerchant, 0, len(f.Merchants))
	for i, m := range f.Merchants {
		addr, err := id.ParseAddress(m.Address)
		if err != nil {
			return Result{}, fmt.Errorf("merchants[%d]: %w", i, err)
		}
		category, err := models.ParseCategory(m.Category)
		if err != nil {
			return Result{}, fmt.Errorf("merchants[%d]: %w", i, err)
		}
		merchants = append(merchants, parsedMerchant{addr: addr, category: category, name: m.Name})
	}

	ctx = requestcontext.WithCaller(ctx, admin)
	var res Result
	for _, addr := range beneficiaries {
		_, err := registrar.AddBeneficiary(ctx, addr)
		switch {
		case errors.Is(err, service.ErrIdentityAlreadyRegistered):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("seed beneficiary %s: %w", addr, err)
		default:
			res.Beneficiaries++
		}
	}
	for _, m := range merchants {
		_, err := registrar.AddMerchant(ctx, m.addr, m.category, m.name)
		switch {
		case errors.Is(err, service.ErrIdentityAlreadyRegistered):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("seed merchant %s: %w", m.addr, err)
		default:
			res.Merchants++
		}
	}
	return res, nil
}
