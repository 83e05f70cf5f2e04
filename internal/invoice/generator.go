package invoice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storefront/internal/domain/model"
)

// 請求書の書き出し。失敗してもチェックアウト自体は失敗させない（呼び出し側でログを出して握りつぶす）。
type Generator interface {
	Generate(order model.Order, items []model.OrderItem) (string, error)
}

// invoices/ 配下にテキストで書き出して、静的配信用のURLパスを返す。
type FileGenerator struct {
	dir     string
	urlBase string
}

func NewFileGenerator(dir string, urlBase string) *FileGenerator {
	return &FileGenerator{dir: dir, urlBase: urlBase}
}

func (g *FileGenerator) Generate(order model.Order, items []model.OrderItem) (string, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("invoice_%d.txt", order.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "INVOICE #%d\n", order.ID)
	fmt.Fprintf(&b, "Date: %s\n", order.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Ship to: %s, %s %s, %s\n", order.ShipName, order.ShipLine1, order.ShipLine2, order.ShipCity)
	b.WriteString("\n")
	for _, it := range items {
		label := it.ProductNameSnapshot
		if it.SizeLabelSnapshot != "" {
			label += " (" + it.SizeLabelSnapshot + ")"
		}
		fmt.Fprintf(&b, "%-40s x%-3d %12d\n", label, it.Quantity, it.UnitPriceSnapshot*it.Quantity)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "TOTAL %d\n", order.TotalPrice)

	path := filepath.Join(g.dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}

	return g.urlBase + "/" + name, nil
}
