package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"travelbooking/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	bookingsSheet = "Bookings"
	lastColumn    = "K"
	timeLayout    = "2006-01-02 15:04:05"
)

var bookingHeaders = []interface{}{
	"ID", "User ID", "Username", "Package ID", "Package", "Date",
	"Status", "Payment Status", "Total Amount", "Created At", "Updated At",
}

var errRowNotFound = errors.New("booking row not found")

// SheetsService mirrors bookings into a spreadsheet, one row per booking.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	rowCache      map[string]int
	cacheMu       sync.RWMutex
}

// NewSheetsService authenticates with a service account credentials file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return newSheetsService(srv, spreadsheetID), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID string) *SheetsService {
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[string]int),
	}
}

func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// WarmUpCache rebuilds the booking id to row index cache from column A.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	cache := make(map[string]int, len(resp.Values))
	for i, row := range resp.Values {
		if id := cellID(row); id != "" && i > 0 {
			cache[id] = i + 1
		}
	}

	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	return nil
}

func (s *SheetsService) AppendBooking(ctx context.Context, booking *models.Booking) error {
	valueRange := &sheets.ValueRange{Values: [][]interface{}{bookingRowValues(booking)}}
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, bookingsSheet+"!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// UpsertBooking updates the booking's row, or appends one if none exists.
func (s *SheetsService) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil {
		return fmt.Errorf("booking is nil")
	}

	rowIdx, err := s.FindBookingRow(ctx, booking.ID)
	if errors.Is(err, errRowNotFound) {
		return s.AppendBooking(ctx, booking)
	}
	if err != nil {
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:%s%d", bookingsSheet, rowIdx, lastColumn, rowIdx)
	valueRange := &sheets.ValueRange{Values: [][]interface{}{bookingRowValues(booking)}}
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// FindBookingRow returns the 1-based row of bookingID, consulting the cache first.
func (s *SheetsService) FindBookingRow(ctx context.Context, bookingID string) (int, error) {
	if bookingID == "" {
		return 0, fmt.Errorf("booking id is required")
	}
	if row, ok := s.getCachedRow(bookingID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for i, row := range resp.Values {
		if cellID(row) == bookingID {
			s.setCachedRow(bookingID, i+1)
			return i + 1, nil
		}
	}
	return 0, errRowNotFound
}

// ReplaceBookingsSheet rewrites the sheet with a header row and all bookings.
func (s *SheetsService) ReplaceBookingsSheet(ctx context.Context, bookings []*models.Booking) error {
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, bookingsSheet+"!A:"+lastColumn, &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear bookings sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(bookings)+1)
	values = append(values, bookingHeaders)
	for _, b := range bookings {
		values = append(values, bookingRowValues(b))
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, bookingsSheet+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update bookings sheet: %w", err)
	}

	cache := make(map[string]int, len(bookings))
	for i, b := range bookings {
		cache[b.ID] = i + 2
	}
	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	return nil
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func cellID(row []interface{}) string {
	if len(row) == 0 {
		return ""
	}
	id, _ := row[0].(string)
	return id
}

func bookingRowValues(b *models.Booking) []interface{} {
	var username, title, paymentStatus string
	if b.User != nil {
		username = b.User.Username
	}
	if b.Package != nil {
		title = b.Package.Title
	}
	if b.PaymentStatus != nil {
		paymentStatus = *b.PaymentStatus
	}
	return []interface{}{
		b.ID,
		b.UserID,
		username,
		b.PackageID,
		title,
		b.Date,
		string(b.Status),
		paymentStatus,
		b.TotalAmount,
		b.CreatedAt.Format(timeLayout),
		b.UpdatedAt.Format(timeLayout),
	}
}
