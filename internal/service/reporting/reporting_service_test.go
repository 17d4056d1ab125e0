package reporting

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/epharmacy/internal/apperr"
	"github.com/mamadbah2/epharmacy/internal/domain/models"
)

type staticSource struct {
	prescriptions []models.Prescription
	medicines     []models.Medicine
}

func (s staticSource) ListPrescriptions(ctx context.Context) ([]models.Prescription, error) {
	return s.prescriptions, nil
}

func (s staticSource) ListMedicines(ctx context.Context) ([]models.Medicine, error) {
	return s.medicines, nil
}

type fakeSheet struct {
	existing [][]interface{}
	appended [][]interface{}
	err      error
}

func (f *fakeSheet) AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, rows...)
	return nil
}

func (f *fakeSheet) ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	return f.existing, nil
}

var (
	amoxil   = models.MatchedMedicine{GenericName: "Amoxicillin", BrandName: "Amoxil", MatchedFrom: models.MatchedFromBrand}
	biogesic = models.MatchedMedicine{GenericName: "Paracetamol", BrandName: "Biogesic", MatchedFrom: models.MatchedFromBrand}
	generic  = models.MatchedMedicine{GenericName: "Paracetamol", BrandName: "Biogesic", MatchedFrom: models.MatchedFromGeneric}
)

func catalog() []models.Medicine {
	return []models.Medicine{
		{ID: primitive.NewObjectID(), GenericName: "Paracetamol", BrandName: "Biogesic"},
		{ID: primitive.NewObjectID(), GenericName: "Amoxicillin", BrandName: "Amoxil"},
	}
}

func prescriptionsOf(matches ...[]models.MatchedMedicine) []models.Prescription {
	out := make([]models.Prescription, 0, len(matches))
	for _, m := range matches {
		out = append(out, models.Prescription{ID: primitive.NewObjectID(), MatchedMedicines: m})
	}
	return out
}

func TestMostScannedRanksByCount(t *testing.T) {
	src := staticSource{
		medicines: catalog(),
		prescriptions: prescriptionsOf(
			[]models.MatchedMedicine{amoxil},
			[]models.MatchedMedicine{amoxil},
			[]models.MatchedMedicine{biogesic},
		),
	}
	svc := NewService(src, src, nil, 0, nil)

	got, err := svc.MostScanned(context.Background(), 0)
	if err != nil {
		t.Fatalf("MostScanned() error = %v", err)
	}
	want := []models.MedicineCount{{Name: "Amoxil", Count: 2}, {Name: "Biogesic", Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MostScanned() = %+v, want %+v", got, want)
	}
}

func TestMostScannedCountsOncePerPrescription(t *testing.T) {
	src := staticSource{
		medicines: catalog(),
		prescriptions: prescriptionsOf(
			[]models.MatchedMedicine{amoxil, amoxil, generic},
		),
	}
	svc := NewService(src, src, nil, 0, nil)

	got, err := svc.MostScanned(context.Background(), 10)
	if err != nil {
		t.Fatalf("MostScanned() error = %v", err)
	}
	// Tie at 1: Paracetamol precedes Amoxil in catalog order.
	want := []models.MedicineCount{{Name: "Paracetamol", Count: 1}, {Name: "Amoxil", Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MostScanned() = %+v, want %+v", got, want)
	}
}

func TestMostScannedUnknownNamesRankLast(t *testing.T) {
	mystery := models.MatchedMedicine{GenericName: "Zzz", MatchedFrom: models.MatchedFromGeneric}
	other := models.MatchedMedicine{GenericName: "Aaa", MatchedFrom: models.MatchedFromGeneric}
	src := staticSource{
		medicines:     catalog(),
		prescriptions: prescriptionsOf([]models.MatchedMedicine{mystery, other, amoxil}),
	}
	svc := NewService(src, src, nil, 0, nil)

	got, err := svc.MostScanned(context.Background(), 2)
	if err != nil {
		t.Fatalf("MostScanned() error = %v", err)
	}
	want := []models.MedicineCount{{Name: "Amoxil", Count: 1}, {Name: "Zzz", Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MostScanned() = %+v, want %+v", got, want)
	}
}

func TestMostScannedEmptyHistory(t *testing.T) {
	src := staticSource{medicines: catalog()}
	svc := NewService(src, src, nil, 0, nil)

	if _, err := svc.MostScanned(context.Background(), 0); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestExportWeekly(t *testing.T) {
	src := staticSource{
		medicines:     catalog(),
		prescriptions: prescriptionsOf([]models.MatchedMedicine{amoxil}, []models.MatchedMedicine{biogesic, amoxil}),
	}
	sheet := &fakeSheet{}
	svc := NewService(src, src, sheet, 5, nil)
	day := time.Date(2025, 3, 7, 20, 0, 0, 0, time.UTC)

	if err := svc.ExportWeekly(context.Background(), day); err != nil {
		t.Fatalf("ExportWeekly() error = %v", err)
	}
	want := [][]interface{}{
		{"2025-03-07", 1, "Amoxil", 2},
		{"2025-03-07", 2, "Biogesic", 1},
	}
	if !reflect.DeepEqual(sheet.appended, want) {
		t.Fatalf("appended = %v, want %v", sheet.appended, want)
	}

	sheet.existing = [][]interface{}{{"2025-03-07", "1", "Amoxil", "2"}}
	sheet.appended = nil
	if err := svc.ExportWeekly(context.Background(), day); err != nil {
		t.Fatalf("second ExportWeekly() error = %v", err)
	}
	if len(sheet.appended) != 0 {
		t.Fatalf("same-day export must not append twice")
	}
}

func TestExportWeeklyFailures(t *testing.T) {
	src := staticSource{medicines: catalog(), prescriptions: prescriptionsOf([]models.MatchedMedicine{amoxil})}
	svc := NewService(src, src, &fakeSheet{err: errors.New("quota")}, 5, nil)

	if err := svc.ExportWeekly(context.Background(), time.Now()); !apperr.Is(err, apperr.KindUpstreamFailure) {
		t.Fatalf("expected UpstreamFailure, got %v", err)
	}

	empty := staticSource{medicines: catalog()}
	if err := NewService(empty, empty, &fakeSheet{}, 5, nil).ExportWeekly(context.Background(), time.Now()); err != nil {
		t.Fatalf("empty history should be a no-op, got %v", err)
	}
	if err := NewService(src, src, nil, 5, nil).ExportWeekly(context.Background(), time.Now()); err != nil {
		t.Fatalf("unconfigured sheet should be a no-op, got %v", err)
	}
}
