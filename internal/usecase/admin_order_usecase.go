package usecase

import (
	"context"
	"fmt"
	"time"

	"storefront-console/internal/domain"
	"storefront-console/internal/viewstate"
	"storefront-console/pkg/logger"

	"github.com/xuri/excelize/v2"
)

const (
	DefaultExportRowCap = 5000

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportSheet     = "Orders"
)

// ExportUploader stores a rendered export and returns its download URL.
type ExportUploader interface {
	UploadBuffer(ctx context.Context, folder, ext string, data []byte, contentType string) (string, error)
}

// OrderExport is either an uploaded file (URL set) or content to stream.
type OrderExport struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Rows        int    `json:"rows"`
	Truncated   bool   `json:"truncated"`
	URL         string `json:"url,omitempty"`
	Content     []byte `json:"-"`
}

// AdminOrderUsecase backs the back-office order console.
type AdminOrderUsecase struct {
	orders    domain.OrderGateway
	lifecycle *OrderLifecycleUsecase
	uploader  ExportUploader
	exportCap int
	now       func() time.Time
}

// NewAdminOrderUsecase builds the console. uploader may be nil, exports are then
// streamed back to the caller.
func NewAdminOrderUsecase(orders domain.OrderGateway, lifecycle *OrderLifecycleUsecase, uploader ExportUploader, exportCap int) *AdminOrderUsecase {
	if exportCap <= 0 {
		exportCap = DefaultExportRowCap
	}
	return &AdminOrderUsecase{
		orders:    orders,
		lifecycle: lifecycle,
		uploader:  uploader,
		exportCap: exportCap,
		now:       time.Now,
	}
}

// List loads one page of orders matching filter onto the console and remembers the
// filter for later reloads. Rows are checked against the same predicate the export
// applies, so both surfaces show the same orders for one filter.
func (u *AdminOrderUsecase) List(ctx context.Context, console *viewstate.Console, filter domain.OrderFilter) (*OrderBoardView, error) {
	filter = filter.Normalize()
	page, err := u.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	page.Result = matching(page.Result, filter)
	console.Mount(page)
	console.Remember(filter)
	return u.View(console), nil
}

// View renders the console. Every admin control is listed, disabled when illegal,
// except approve/reject which only appear on orders awaiting a return decision.
func (u *AdminOrderUsecase) View(console *viewstate.Console) *OrderBoardView {
	return renderBoard(console.Board, u.controls)
}

func (u *AdminOrderUsecase) controls(o domain.Order) []domain.Control {
	all := u.lifecycle.Controls(o, domain.RoleAdmin, true)
	if o.Status == domain.OrderStatusReturnRequested {
		return all
	}
	out := all[:0]
	for _, c := range all {
		if c.Op == domain.OpApproveReturn || c.Op == domain.OpRejectReturn {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Invoke runs op as admin. A success reloads the list with the last filter rather
// than patching the row.
func (u *AdminOrderUsecase) Invoke(ctx context.Context, console *viewstate.Console, admin *domain.User, gen viewstate.Generation, orderID string, op domain.Operation) (*OrderBoardView, error) {
	if gen == 0 {
		gen = console.Generation()
	}
	if gen != console.Generation() || !console.Mounted() {
		return nil, domain.ErrStaleView
	}
	order, ok := console.Order(orderID)
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}

	if _, err := u.lifecycle.Apply(ctx, &order, op, domain.AdminActor(admin.ID)); err != nil {
		transitionFailed(console.Board, gen, orderID, err)
		return u.View(console), err
	}

	if gen != console.Generation() {
		logger.WithContext(ctx).Debug().Str("order_id", orderID).Msg("Console changed during transition, skipping reload")
		return u.View(console), nil
	}

	view, err := u.List(ctx, console, console.LastFilter())
	if err != nil {
		// The transition itself went through; only the refresh failed.
		logger.WithContext(ctx).Warn().Err(err).Str("order_id", orderID).Msg("Reloading orders after transition failed")
		console.Notify(gen, domain.Notification{Level: levelSuccess, Message: opLabel(op), OrderID: orderID})
		return u.View(console), nil
	}
	view.Notifications = append(view.Notifications, domain.Notification{Level: levelSuccess, Message: opLabel(op), OrderID: orderID})
	return view, nil
}

// Export renders every order matching filter, up to the row cap, to a spreadsheet.
func (u *AdminOrderUsecase) Export(ctx context.Context, filter domain.OrderFilter) (*OrderExport, error) {
	log := logger.WithContext(ctx)

	filter = filter.Normalize()
	filter.Current = 1
	filter.PageSize = u.exportCap

	page, err := u.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders for export: %w", err)
	}

	rows := matching(page.Result, filter)
	truncated := page.Meta.Total > u.exportCap
	if len(rows) > u.exportCap {
		rows = rows[:u.exportCap]
		truncated = true
	}

	content, err := renderOrdersXLSX(rows)
	if err != nil {
		return nil, err
	}
	exportRowsTotal.Add(float64(len(rows)))

	export := &OrderExport{
		FileName:    fmt.Sprintf("orders-%s.xlsx", u.now().UTC().Format("20060102-150405")),
		ContentType: xlsxContentType,
		Rows:        len(rows),
		Truncated:   truncated,
	}

	if u.uploader == nil {
		export.Content = content
		return export, nil
	}

	url, err := u.uploader.UploadBuffer(ctx, "exports", ".xlsx", content, xlsxContentType)
	if err != nil {
		log.Warn().Err(err).Msg("Export upload failed, streaming instead")
		export.Content = content
		return export, nil
	}
	export.URL = url
	log.Info().Int("rows", export.Rows).Bool("truncated", truncated).Msg("Order export uploaded")
	return export, nil
}

var exportHeader = []interface{}{"Order ID", "Customer", "Phone", "Address", "Status", "Total", "Created At"}

func renderOrdersXLSX(orders []domain.Order) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("prepare export sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("open export stream: %w", err)
	}
	if err := sw.SetRow("A1", exportHeader); err != nil {
		return nil, fmt.Errorf("write export header: %w", err)
	}

	for i, o := range orders {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		total, _ := o.TotalPrice.Float64()
		row := []interface{}{
			o.ID,
			o.CustomerName,
			o.Phone,
			o.Address,
			string(o.Status),
			total,
			o.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, fmt.Errorf("write export row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush export: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return buf.Bytes(), nil
}

func matching(orders []domain.Order, filter domain.OrderFilter) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if filter.Matches(o) {
			out = append(out, o)
		}
	}
	return out
}
