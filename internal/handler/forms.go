package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"miscompras/internal/apierror"
	"miscompras/internal/dto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	uploadField     = "files"
	multipartMemory = 8 << 20
)

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formDecoder reads typed fields from a multipart form and keeps the first
// parse error.
type formDecoder struct {
	form url.Values
	err  error
}

func (d *formDecoder) keep(err error) {
	if d.err == nil && err != nil {
		d.err = apierror.InvalidInput(err.Error())
	}
}

func (d *formDecoder) str(key string) dto.Optional[string] { return dto.FormString(d.form, key) }

func (d *formDecoder) integer(key string) dto.Optional[int] {
	o, err := dto.FormInt(d.form, key)
	d.keep(err)
	return o
}

func (d *formDecoder) boolean(key string) dto.Optional[bool] {
	o, err := dto.FormBool(d.form, key)
	d.keep(err)
	return o
}

func (d *formDecoder) amount(key string) dto.Optional[decimal.Decimal] {
	o, err := dto.FormDecimal(d.form, key)
	d.keep(err)
	return o
}

func (d *formDecoder) id(key string) dto.Optional[uuid.UUID] {
	o, err := dto.FormUUID(d.form, key)
	d.keep(err)
	return o
}

// ids accepts a JSON array in a single field or the field repeated.
func (d *formDecoder) ids(key string) []uuid.UUID {
	vals := d.form[key]
	if len(vals) == 1 && strings.HasPrefix(strings.TrimSpace(vals[0]), "[") {
		var out []uuid.UUID
		if err := json.Unmarshal([]byte(vals[0]), &out); err != nil {
			d.keep(err)
		}
		return out
	}
	out := make([]uuid.UUID, 0, len(vals))
	for _, v := range vals {
		if v == "" {
			continue
		}
		id, err := uuid.Parse(v)
		if err != nil {
			d.keep(err)
			continue
		}
		out = append(out, id)
	}
	return out
}

func createRequestFromForm(form url.Values) (dto.CreateRequirementRequest, error) {
	d := &formDecoder{form: form}
	req := dto.CreateRequirementRequest{
		Title:               d.str("title").Value,
		Description:         optPtr(d.str("description")),
		ManualSupplierName:  optPtr(d.str("manualSupplierName")),
		PurchaseOrderNumber: optPtr(d.str("purchaseOrderNumber")),
		Observations:        optPtr(d.str("observations")),
		BudgetID:            optPtr(d.id("budgetId")),
		CategoryID:          optPtr(d.id("categoryId")),
		SupplierID:          optPtr(d.id("supplierId")),
		ActualAmount:        optPtr(d.amount("actualAmount")),
		Quantity:            d.integer("quantity").Value,
		TotalAmount:         d.amount("totalAmount").Value,
		HasMultiplePayments: d.boolean("hasMultiplePayments").Value,
		ProjectID:           d.id("projectId").Value,
		AreaID:              d.id("areaId").Value,
	}
	return req, d.err
}

func updateRequestFromForm(form url.Values) (dto.UpdateRequirementRequest, error) {
	d := &formDecoder{form: form}
	req := dto.UpdateRequirementRequest{
		Title:               d.str("title"),
		Description:         d.str("description"),
		Quantity:            d.integer("quantity"),
		BudgetID:            d.id("budgetId"),
		CategoryID:          d.id("categoryId"),
		SupplierID:          d.id("supplierId"),
		ManualSupplierName:  d.str("manualSupplierName"),
		TotalAmount:         d.amount("totalAmount"),
		ActualAmount:        d.amount("actualAmount"),
		PurchaseOrderNumber: d.str("purchaseOrderNumber"),
		InvoiceNumber:       d.str("invoiceNumber"),
		Observations:        d.str("observations"),
		RemoveAttachmentIDs: d.ids("attachmentsToDelete"),
	}
	return req, d.err
}

// optPtr keeps only present, non-null values.
func optPtr[T any](o dto.Optional[T]) *T {
	if !o.HasValue() {
		return nil
	}
	return o.Ptr()
}

func uploadsFrom(headers []*multipart.FileHeader) []dto.FileUpload {
	out := make([]dto.FileUpload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		out = append(out, dto.FileUpload{
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Size:     fh.Size,
			Open:     func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return out
}

// readMultipart parses the request form. Bodies above maxBytes are rejected.
func readMultipart(c *gin.Context, maxBytes int64) (*multipart.Form, error) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		return nil, apierror.InvalidInput("formulario multipart invalido: " + err.Error())
	}
	return c.Request.MultipartForm, nil
}
