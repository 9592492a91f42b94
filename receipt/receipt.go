// Package receipt renders printable order receipts. The QR code on a receipt carries the
// order id and delivery code, signed so a scanner can tell a forged code from a real one.
package receipt

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"campuscrave/models"

	"github.com/phpdave11/gofpdf"
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

var ErrBadPayload = errors.New("receipt code is not valid")

type Printer struct {
	secret []byte
}

func NewPrinter(secret string) *Printer {
	return &Printer{secret: []byte(secret)}
}

// Payload returns orderID|otp|signature.
func (p *Printer) Payload(o models.Order) string {
	data := o.ID + "|" + o.OTP
	return data + "|" + p.sign(data)
}

// ParsePayload checks the signature and returns the order id and delivery code.
func (p *Printer) ParsePayload(payload string) (orderID, otp string, err error) {
	parts := strings.Split(strings.TrimSpace(payload), "|")
	if len(parts) != 3 {
		return "", "", ErrBadPayload
	}
	want := p.sign(parts[0] + "|" + parts[1])
	if !hmac.Equal([]byte(want), []byte(parts[2])) {
		return "", "", ErrBadPayload
	}
	return parts[0], parts[1], nil
}

func (p *Printer) sign(data string) string {
	h := hmac.New(sha256.New, p.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Write renders o as a single page PDF.
func (p *Printer) Write(w io.Writer, o models.Order, vendorName string) error {
	qrPNG, err := qrcode.Encode(p.Payload(o), qrcode.Medium, 256)
	if err != nil {
		return errors.Wrap(err, "generate QR code")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Order "+o.ID, false)
	pdf.AddPage()

	pdf.SetFillColor(234, 88, 12)
	pdf.Rect(0, 0, 210, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 20)
	pdf.SetXY(15, 9)
	pdf.Cell(0, 10, "Campus Crave")

	pdf.SetTextColor(30, 41, 59)
	pdf.SetXY(15, 36)
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Order "+o.ID)
	pdf.Ln(9)

	pdf.SetFont("Arial", "", 11)
	for _, line := range []string{
		"Vendor: " + vendorName,
		"Placed: " + o.CreatedAt.Format("02 Jan 2006 15:04"),
		"Status: " + string(o.Status),
		"Deliver to: " + o.DeliveryAddress,
	} {
		pdf.SetX(15)
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetX(15)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(100, 8, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(40, 8, "Amount", "B", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	for _, it := range o.Items {
		pdf.SetX(15)
		pdf.CellFormat(100, 7, it.Name, "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", it.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, rupees(it.LineTotal()), "", 1, "R", false, 0, "")
	}
	pdf.SetX(15)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(120, 9, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(40, 9, rupees(o.TotalAmount), "T", 1, "R", false, 0, "")

	pdf.Ln(8)
	pdf.SetX(15)
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Delivery code: "+o.OTP)
	pdf.Ln(10)
	pdf.SetX(15)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, "Share this code or the QR code only when your order reaches you.")

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 34, 45, 45, false, opts, 0, "")

	return errors.Wrap(pdf.Output(w), "render PDF")
}

func rupees(v float64) string {
	return fmt.Sprintf("Rs. %.2f", v)
}
