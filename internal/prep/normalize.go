package prep

import (
	"github.com/user/sparring/internal/schema"
	"github.com/user/sparring/internal/types"
)

// The model never assigns item ids; each converter mints fresh uuids and
// guarantees the optional arrays exist, so clients can iterate without nil
// checks.

func toOpenings(in []schema.GeneratedOpening) []types.Opening {
	out := make([]types.Opening, 0, len(in))
	for _, o := range in {
		out = append(out, types.Opening{ID: types.NewItemID(), Text: o.Text, Style: o.Style})
	}
	return out
}

func toFrames(in []schema.GeneratedFrame) []types.Frame {
	out := make([]types.Frame, 0, len(in))
	for _, f := range in {
		evidence := f.EvidenceIDs
		if evidence == nil {
			evidence = []string{}
		}
		out = append(out, types.Frame{
			ID:          types.NewItemID(),
			Title:       f.Title,
			Summary:     f.Summary,
			EvidenceIDs: evidence,
		})
	}
	return out
}

func toReceipts(in []schema.GeneratedReceipt) []types.Receipt {
	out := make([]types.Receipt, 0, len(in))
	for _, r := range in {
		out = append(out, types.Receipt{
			ID:       types.NewItemID(),
			Category: r.Category,
			Claim:    r.Claim,
			Source:   r.Source,
			Quote:    r.Quote,
		})
	}
	return out
}

func toZingers(in []schema.GeneratedZinger) []types.Zinger {
	out := make([]types.Zinger, 0, len(in))
	for _, z := range in {
		out = append(out, types.Zinger{ID: types.NewItemID(), Text: z.Text, UseWhen: z.UseWhen})
	}
	return out
}

func toClosings(in []schema.GeneratedClosing) []types.Closing {
	out := make([]types.Closing, 0, len(in))
	for _, c := range in {
		out = append(out, types.Closing{ID: types.NewItemID(), Text: c.Text, Style: c.Style})
	}
	return out
}

func toIntel(in []schema.GeneratedIntel) []types.IntelItem {
	out := make([]types.IntelItem, 0, len(in))
	for _, it := range in {
		counters := make([]types.Counter, 0, len(it.Counters))
		for _, c := range it.Counters {
			counters = append(counters, types.Counter{ID: types.NewItemID(), Text: c})
		}
		out = append(out, types.IntelItem{
			ID:         types.NewItemID(),
			Argument:   it.Argument,
			Likelihood: it.Likelihood,
			Counters:   counters,
		})
	}
	return out
}

// reconcileSelections clears selection ids that no longer reference an item
// in the freshly written collections. Applied at write time so regeneration
// cannot leave a selection dangling.
func reconcileSelections(s *types.Subject) {
	if s.SelectedOpeningID != "" && !containsID(openingIDs(s.Openings), s.SelectedOpeningID) {
		s.SelectedOpeningID = ""
	}
	if s.SelectedClosingID != "" && !containsID(closingIDs(s.Closings), s.SelectedClosingID) {
		s.SelectedClosingID = ""
	}
	if len(s.SelectedFrameIDs) > 0 {
		frameIDs := make(map[string]bool, len(s.Frames))
		for _, f := range s.Frames {
			frameIDs[f.ID] = true
		}
		kept := s.SelectedFrameIDs[:0]
		for _, id := range s.SelectedFrameIDs {
			if frameIDs[id] {
				kept = append(kept, id)
			}
		}
		s.SelectedFrameIDs = kept
	}
}

func openingIDs(items []types.Opening) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func closingIDs(items []types.Closing) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
