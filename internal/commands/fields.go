package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ryoshu-dev/ryoshu/internal/capture"
	"github.com/ryoshu-dev/ryoshu/internal/model"
)

// fieldFlags are the editable receipt fields shared by scan and edit.
type fieldFlags struct {
	date     string
	amount   string
	store    string
	category string
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "receipt date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount in yen, digits only")
	cmd.Flags().StringVar(&f.store, "store", "", "store name")
	cmd.Flags().StringVar(&f.category, "category", "", "category, one of "+categoryList())
}

func (f *fieldFlags) fields() capture.Fields {
	return capture.Fields{
		Date:     f.date,
		Amount:   f.amount,
		Store:    f.store,
		Category: model.Category(f.category),
	}
}

func (f *fieldFlags) empty() bool {
	return f.fields() == capture.Fields{}
}

func categoryList() string {
	names := make([]string, 0, len(model.Categories()))
	for _, c := range model.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
