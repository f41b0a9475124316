package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// SubjectRow is one printed line on a result sheet.
type SubjectRow struct {
	Name   string
	CA1    string
	CA2    string
	CA3    string
	Exam   string
	Total  string
	Grade  string
	Remark string
}

// RatingRow is one printed affective/psychomotor/cognitive rating.
type RatingRow struct {
	Trait string
	Score int
}

// ResultSheetData carries everything a rendered result sheet needs.
type ResultSheetData struct {
	SchoolName      string
	SchoolAddress   string
	StudentName     string
	AdmissionNo     string
	ClassLevel      string
	Term            string
	Session         string
	Subjects        []SubjectRow
	Average         string
	DaysPresent     int
	DaysTotal       int
	Affective       []RatingRow
	Psychomotor     []RatingRow
	Cognitive       []RatingRow
	TeacherRemark   string
	PrincipalRemark string
}

// RenderResultSheetPDF renders a single-term result sheet.
func RenderResultSheetPDF(data ResultSheetData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s - %s Result", data.StudentName, data.Term), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 9, data.SchoolName, "", 1, "C", false, 0, "")
	if data.SchoolAddress != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, data.SchoolAddress, "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("%s Report Sheet - %s Session", data.Term, data.Session), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(95, 6, fmt.Sprintf("Name: %s", data.StudentName), "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, fmt.Sprintf("Admission No: %s", data.AdmissionNo), "", 1, "L", false, 0, "")
	pdf.CellFormat(95, 6, fmt.Sprintf("Class: %s", data.ClassLevel), "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, fmt.Sprintf("Attendance: %d of %d days", data.DaysPresent, data.DaysTotal), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	headers := []string{"Subject", "CA1", "CA2", "CA3", "Exam", "Total", "Grade", "Remark"}
	widths := []float64{48, 14, 14, 14, 16, 16, 16, 52}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Subjects {
		cells := []string{row.Name, row.CA1, row.CA2, row.CA3, row.Exam, row.Total, row.Grade, row.Remark}
		for i, c := range cells {
			align := "C"
			if i == 0 || i == len(cells)-1 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 8, fmt.Sprintf("Average: %s", data.Average), "", 1, "R", false, 0, "")
	pdf.Ln(2)

	renderRatings(pdf, "Affective Traits", data.Affective)
	renderRatings(pdf, "Psychomotor Skills", data.Psychomotor)
	renderRatings(pdf, "Cognitive Skills", data.Cognitive)

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Class Teacher's Remark", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, data.TeacherRemark, "", "L", false)
	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Principal's Remark", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, data.PrincipalRemark, "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render result sheet: %w", err)
	}
	return buf.Bytes(), nil
}

func renderRatings(pdf *gofpdf.Fpdf, title string, rows []RatingRow) {
	if len(rows) == 0 {
		return
	}
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, r := range rows {
		pdf.CellFormat(60, 5, r.Trait, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 5, fmt.Sprintf("%d / 5", r.Score), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(1)
}

// IDCardData carries an ID card render. QRPayload is the exact JSON text the
// gate scanner expects back.
type IDCardData struct {
	SchoolName  string
	StudentName string
	AdmissionNo string
	ClassLevel  string
	GeneratedID string
	QRPayload   string
}

// RenderIDCardPDF renders a wallet-sized student ID card with its QR code.
func RenderIDCardPDF(data IDCardData) ([]byte, error) {
	png, err := qrcode.Encode(data.QRPayload, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}

	pdf := gofpdf.New("L", "mm", "A6", "")
	pdf.SetTitle(fmt.Sprintf("%s ID Card", data.StudentName), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 9, data.SchoolName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 5, "STUDENT IDENTITY CARD", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(85, 6, fmt.Sprintf("Name: %s", data.StudentName), "", 1, "L", false, 0, "")
	pdf.CellFormat(85, 6, fmt.Sprintf("Admission No: %s", data.AdmissionNo), "", 1, "L", false, 0, "")
	pdf.CellFormat(85, 6, fmt.Sprintf("Class: %s", data.ClassLevel), "", 1, "L", false, 0, "")
	pdf.CellFormat(85, 6, fmt.Sprintf("Student ID: %s", data.GeneratedID), "", 1, "L", false, 0, "")

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("idcard-qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("idcard-qr", 105, 18, 35, 35, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render id card: %w", err)
	}
	return buf.Bytes(), nil
}

// AttendanceReportData carries a printable attendance register.
type AttendanceReportData struct {
	SchoolName string
	Period     string
	Rows       []AttendanceRow
}

// RenderAttendancePDF renders the attendance register as a table.
func RenderAttendancePDF(data AttendanceReportData) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s Attendance", data.SchoolName), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, data.SchoolName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Attendance Register - %s", data.Period), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	headers := []string{"Date", "Admission No", "Student", "Clock In", "Clock Out", "Dropped Off By", "Picked Up By", "Phone"}
	widths := []float64{26, 30, 56, 22, 22, 46, 46, 28}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		cells := []string{row.Date, row.AdmissionNo, row.StudentName, row.ClockIn, row.ClockOut, row.InGuardian, row.OutGuardian, row.GuardianPhone}
		for i, c := range cells {
			align := "C"
			if i == 2 || i == 5 || i == 6 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render attendance register: %w", err)
	}
	return buf.Bytes(), nil
}

// QuestionPaperRow is one printed question with its options.
type QuestionPaperRow struct {
	Number  int
	Text    string
	Options []string
}

// QuestionPaperData carries a printable exam paper. Correct answers are
// never included.
type QuestionPaperData struct {
	SchoolName      string
	Subject         string
	ClassLevel      string
	Term            string
	Session         string
	DurationMinutes int
	Questions       []QuestionPaperRow
}

// RenderQuestionPaperPDF renders an exam question paper.
func RenderQuestionPaperPDF(data QuestionPaperData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s %s Paper", data.Subject, data.Term), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, data.SchoolName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("%s - %s - %s Session", data.Subject, data.ClassLevel, data.Session), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("%s | Duration: %d minutes", data.Term, data.DurationMinutes), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	letters := []string{"A", "B", "C", "D", "E", "F"}
	for _, q := range data.Questions {
		pdf.SetFont("Arial", "B", 10)
		pdf.MultiCell(0, 5, fmt.Sprintf("%d. %s", q.Number, q.Text), "", "L", false)
		pdf.SetFont("Arial", "", 10)
		for i, opt := range q.Options {
			label := fmt.Sprintf("%d", i+1)
			if i < len(letters) {
				label = letters[i]
			}
			pdf.MultiCell(0, 5, fmt.Sprintf("    %s. %s", label, opt), "", "L", false)
		}
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render question paper: %w", err)
	}
	return buf.Bytes(), nil
}
