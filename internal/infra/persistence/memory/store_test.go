package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"specimencore/pkg/domain"
)

type blockRule struct{}

func (blockRule) Name() string { return "block_all" }

func (blockRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if len(changes) == 0 {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{Rule: "block_all", Severity: domain.SeverityBlock}}}, nil
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	res, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindCollection("missing"); ok {
			t.Fatalf("expected missing collection lookup")
		}
		created, err := tx.CreateCollection(domain.Collection{Locality: "Shark Bay", CollectorName: "J. Smith"})
		if err != nil {
			return err
		}
		if created.ID == "" || created.Seq != 1 {
			t.Fatalf("expected generated id and seq, got %+v", created)
		}
		if created.CollectionDate.IsZero() {
			t.Fatalf("expected default collection date")
		}
		if len(tx.Snapshot().ListCollections()) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(res.Changes) != 1 || res.Changes[0].Action != domain.ActionCreate {
		t.Fatalf("expected one create change, got %+v", res.Changes)
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListCollections()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if len(store.ListCollections()) != 1 {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil || store.NowFunc() == nil {
		t.Fatalf("expected engine and clock")
	}
}

func TestSpecimenLifecycleAndScore(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var collectionID, specimenID string
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		c, err := tx.CreateCollection(domain.Collection{Locality: "Shark Bay"})
		if err != nil {
			return err
		}
		collectionID = c.ID
		sp := domain.NewSpecimen("")
		sp.StructureType = "STROMATOLITE"
		sp.MineralType = "granite"
		created, err := tx.AddSpecimen(c.ID, sp)
		if err != nil {
			return err
		}
		specimenID = created.ID
		return nil
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	c, _ := store.GetCollection(collectionID)
	sp := c.Specimens[0]
	if sp.StructureType != domain.StructureStromatolite || sp.MineralType != domain.MineralUnknown {
		t.Fatalf("expected normalised classifications, got %q %q", sp.StructureType, sp.MineralType)
	}
	if sp.QualityScore != 1 {
		t.Fatalf("expected score 1 for a known structure only, got %v", sp.QualityScore)
	}

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateSpecimen(specimenID, func(s *domain.Specimen) error {
			s.Label = "SB-001"
			s.AddPhoto([]byte("A"))
			s.OCRConfidence = 3
			s.ID = "hijack"
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	view := store.ExportState()
	got := view.Collections[collectionID].Specimens[0]
	if got.ID != specimenID || got.OCRConfidence != 1 || got.QualityScore != 4 {
		t.Fatalf("unexpected specimen after update: id=%s conf=%v score=%v", got.ID, got.OCRConfidence, got.QualityScore)
	}

	err = store.View(ctx, func(v domain.TransactionView) error {
		found, owner, ok := v.FindSpecimen(specimenID)
		if !ok || owner != collectionID || found.Label != "SB-001" {
			t.Fatalf("FindSpecimen mismatch: %v %s %+v", ok, owner, found)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestUpdateCollectionPinsIdentityAndSpecimens(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var id string
	_, _ = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		c, _ := tx.CreateCollection(domain.Collection{Locality: "a"})
		id = c.ID
		_, err := tx.AddSpecimen(id, domain.NewSpecimen(""))
		return err
	})
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateCollection(id, func(c *domain.Collection) error {
			c.ID = "other"
			c.Seq = 99
			c.Specimens = nil
			c.Locality = "b"
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	c, ok := store.GetCollection(id)
	if !ok || c.Locality != "b" || c.Seq != 1 || len(c.Specimens) != 1 {
		t.Fatalf("unexpected collection %+v", c)
	}
}

func TestDeleteCollectionCascades(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var id, spID string
	_, _ = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		c, _ := tx.CreateCollection(domain.Collection{Locality: "a"})
		id = c.ID
		sp, err := tx.AddSpecimen(id, domain.NewSpecimen(""))
		spID = sp.ID
		tx.SetSession(domain.Session{CurrentCollectionID: id, ActiveSpecimenID: sp.ID})
		return err
	})
	res, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error { return tx.DeleteCollection(id) })
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(res.Changes) != 2 {
		t.Fatalf("expected specimen and collection delete changes, got %d", len(res.Changes))
	}
	if store.Session() != (domain.Session{}) {
		t.Fatalf("expected session cleared, got %+v", store.Session())
	}
	_ = store.View(ctx, func(v domain.TransactionView) error {
		if _, _, ok := v.FindSpecimen(spID); ok {
			t.Fatalf("specimen still reachable")
		}
		return nil
	})
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateSpecimen(spID, func(*domain.Specimen) error { return nil })
		return err
	})
	var nf domain.ErrNotFound
	if !errors.As(err, &nf) || nf.Entity != domain.EntitySpecimen {
		t.Fatalf("expected specimen not found, got %v", err)
	}
}

func TestListCollectionsOrdering(t *testing.T) {
	store := NewStore(nil)
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for _, c := range []domain.Collection{
			{Locality: "old", CollectionDate: base.Add(-time.Hour)},
			{Locality: "tie-first", CollectionDate: base},
			{Locality: "tie-second", CollectionDate: base},
			{Locality: "new", CollectionDate: base.Add(time.Hour)},
		} {
			if _, err := tx.CreateCollection(c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var got []string
	for _, c := range store.ListCollections() {
		got = append(got, c.Locality)
	}
	want := []string{"new", "tie-first", "tie-second", "old"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch: got %v want %v", got, want)
		}
	}
}

func TestBlockingRuleRollsBack(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockRule{})
	store := NewStore(engine)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateCollection(domain.Collection{Locality: "x"})
		return err
	})
	var rv domain.RuleViolationError
	if !errors.As(err, &rv) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if len(store.ListCollections()) != 0 {
		t.Fatalf("expected rollback")
	}
}

func TestImportStateNormalisesAndAdvancesSequence(t *testing.T) {
	store := NewStore(nil)
	sp := domain.NewSpecimen("sp")
	sp.StructureType = "bogus"
	store.ImportState(Snapshot{Collections: map[string]Collection{
		"c": {Seq: 7, Specimens: []domain.Specimen{sp}},
	}})
	c, ok := store.GetCollection("c")
	if !ok || c.ID != "c" || c.Specimens[0].StructureType != domain.StructureUnknown {
		t.Fatalf("unexpected import %+v", c)
	}
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		created, err := tx.CreateCollection(domain.Collection{})
		if created.Seq != 8 {
			t.Fatalf("expected seq 8, got %d", created.Seq)
		}
		_, dupErr := tx.AddSpecimen(created.ID, domain.NewSpecimen("sp"))
		if dupErr == nil {
			t.Fatalf("expected duplicate specimen id error")
		}
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
}
