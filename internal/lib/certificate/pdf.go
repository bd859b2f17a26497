package certificate

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/go-pdf/fpdf"
)

// Data is everything printed on a certificate.
type Data struct {
	Token        string
	OwnerName    string
	OwnerEmail   string
	SerialNumber string
	Brand        string
	Model        string
	Color        string
	BikeType     string
	Year         *int
	RegisteredAt time.Time
	Stolen       bool
	VerifyURL    string
	IssuedAt     time.Time
}

var certificateZone = mustLoadZone("America/Mexico_City")

func mustLoadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RenderPDF lays out an A4 certificate with the bicycle data and its QR code.
func RenderPDF(d Data) ([]byte, error) {
	qr, err := QRCode(d.VerifyURL, 512)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Certificado de registro "+d.SerialNumber, true)
	pdf.SetCreator(Issuer, false)
	pdf.SetCreationDate(d.IssuedAt)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, tr("Certificado de Registro de Bicicleta"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, tr("Folio "+Number(d.Token)), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	status := "Registrada"
	if d.Stolen {
		status = "Reportada como robada"
	}
	year := "-"
	if d.Year != nil {
		year = strconv.Itoa(*d.Year)
	}

	rows := [][2]string{
		{"Propietario", d.OwnerName},
		{"Correo", d.OwnerEmail},
		{"Número de serie", d.SerialNumber},
		{"Marca", d.Brand},
		{"Modelo", d.Model},
		{"Color", d.Color},
		{"Tipo", d.BikeType},
		{"Año", year},
		{"Fecha de registro", d.RegisteredAt.In(certificateZone).Format("02/01/2006")},
		{"Estado", status},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(55, 8, tr(row[0]), "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, tr(row[1]), "1", 1, "L", false, 0, "")
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qr))
	qrTop := pdf.GetY() + 10
	pdf.ImageOptions("qr", 75, qrTop, 60, 60, false, opts, 0, d.VerifyURL)

	pdf.SetY(qrTop + 62)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, tr("Escanea el código para verificar el registro"), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, d.VerifyURL, "", 1, "C", false, 0, d.VerifyURL)
	pdf.Ln(6)

	pdf.SetFont("Courier", "", 6)
	pdf.MultiCell(0, 3, d.Token, "", "L", false)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 5, tr("Emitido el "+d.IssuedAt.In(certificateZone).Format("02/01/2006 15:04")), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
