package reports

import (
	"context"
	"fmt"
	"sort"

	pkgerrors "github.com/ecomhq/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Service builds the host sales dashboard data.
type Service interface {
	SalesReport(ctx context.Context, filter Filter) (*Report, error)
	FilterOptions(ctx context.Context) (*Options, error)
}

// ProductSales is an aggregate bucket per product, ordered by total.
type ProductSales struct {
	Product string          `json:"product"`
	Total   decimal.Decimal `json:"total"`
}

// DailySales is an aggregate bucket per calendar day.
type DailySales struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// Report is the full dashboard payload.
type Report struct {
	TransactionCount int             `json:"transaction_count"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	AverageSalePerTx decimal.Decimal `json:"average_sale_per_transaction"`
	SalesByProduct   []ProductSales  `json:"sales_by_product"`
	SalesByDay       []DailySales    `json:"sales_by_day"`
}

// Options lists the filterable product and customer names.
type Options struct {
	Products  []string `json:"products"`
	Customers []string `json:"customers"`
}

type rowSource interface {
	SalesRows(ctx context.Context, filter Filter) ([]SalesRow, error)
	ProductNames(ctx context.Context) ([]string, error)
	CustomerNames(ctx context.Context) ([]string, error)
}

type service struct {
	repo rowSource
}

// NewService wires a reports service with the provided repository.
func NewService(repo rowSource) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	return &service{repo: repo}, nil
}

// SalesReport aggregates ledger rows priced at the live catalog price. A
// transaction is one ledger row; the average is taken over rows, not days.
func (s *service) SalesReport(ctx context.Context, filter Filter) (*Report, error) {
	rows, err := s.repo.SalesRows(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales rows")
	}

	report := &Report{
		TransactionCount: len(rows),
		TotalSales:       decimal.Zero,
		AverageSalePerTx: decimal.Zero,
		SalesByProduct:   []ProductSales{},
		SalesByDay:       []DailySales{},
	}
	if len(rows) == 0 {
		return report, nil
	}

	byProduct := map[string]decimal.Decimal{}
	byDay := map[string]decimal.Decimal{}
	for _, row := range rows {
		total := row.UnitPrice.Mul(decimal.NewFromInt(int64(row.Quantity)))
		report.TotalSales = report.TotalSales.Add(total)

		name := row.ProductName
		if name == "" {
			// Product removed after purchase; keep the row under its id.
			name = row.ProductID.String()
		}
		byProduct[name] = byProduct[name].Add(total)
		day := row.PurchasedAt.UTC().Format("2006-01-02")
		byDay[day] = byDay[day].Add(total)
	}
	report.AverageSalePerTx = report.TotalSales.
		Div(decimal.NewFromInt(int64(len(rows)))).
		Round(2)

	for product, total := range byProduct {
		report.SalesByProduct = append(report.SalesByProduct, ProductSales{Product: product, Total: total})
	}
	sort.Slice(report.SalesByProduct, func(i, j int) bool {
		return report.SalesByProduct[i].Total.LessThan(report.SalesByProduct[j].Total)
	})

	for day, total := range byDay {
		report.SalesByDay = append(report.SalesByDay, DailySales{Date: day, Total: total})
	}
	sort.Slice(report.SalesByDay, func(i, j int) bool {
		return report.SalesByDay[i].Date < report.SalesByDay[j].Date
	})

	return report, nil
}

func (s *service) FilterOptions(ctx context.Context) (*Options, error) {
	products, err := s.repo.ProductNames(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product names")
	}
	customers, err := s.repo.CustomerNames(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer names")
	}
	return &Options{Products: products, Customers: customers}, nil
}
