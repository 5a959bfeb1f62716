package generation

import (
	"context"
	"sort"
	"strings"
	"sync"

	"stylrapi/models"
)

// SimilarityThreshold is the weighted Jaccard score above which two outfits
// count as repeats.
const SimilarityThreshold = 0.7

// historyWindow caps how many recent outfits the diversity check considers.
const historyWindow = 50

// rotationSlots is the size of the per-user ring of recently suggested item
// ids. Items outside the ring earn a rotation boost.
const rotationSlots = 20

// outfitSignature is the comparable shape of an outfit: item ids plus the
// coarse type, color and style vocabularies.
type outfitSignature struct {
	items  map[uint]bool
	types  map[string]bool
	colors map[string]bool
	styles map[string]bool
}

func signatureFromItems(items []models.ClothingItem) outfitSignature {
	sig := outfitSignature{
		items:  map[uint]bool{},
		types:  map[string]bool{},
		colors: map[string]bool{},
		styles: map[string]bool{},
	}
	for _, item := range items {
		sig.items[item.ID] = true
		if t := strings.ToLower(item.ClothingType); t != "" {
			sig.types[t] = true
		}
		if c := strings.ToLower(item.Color); c != "" {
			sig.colors[c] = true
		}
		for _, style := range item.NormalizedStyles() {
			sig.styles[strings.ToLower(style)] = true
		}
	}
	return sig
}

func signatureFromOutfit(outfit *models.Outfit) outfitSignature {
	items := make([]models.ClothingItem, 0, len(outfit.Items))
	for _, entry := range outfit.Items {
		items = append(items, entry.ClothingItem)
	}
	return signatureFromItems(items)
}

func jaccardUint(a, b map[uint]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for key := range a {
		if b[key] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func jaccardString(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for key := range a {
		if b[key] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Similarity is the weighted Jaccard over two item sets: exact items weigh
// 0.4, clothing types 0.3, colors 0.2, styles 0.1. Always in [0, 1].
func Similarity(a, b []models.ClothingItem) float64 {
	return similaritySignatures(signatureFromItems(a), signatureFromItems(b))
}

func similaritySignatures(a, b outfitSignature) float64 {
	return 0.4*jaccardUint(a.items, b.items) +
		0.3*jaccardString(a.types, b.types) +
		0.2*jaccardString(a.colors, b.colors) +
		0.1*jaccardString(a.styles, b.styles)
}

// DiversityCheck is the verdict for one candidate outfit against the recent
// history.
type DiversityCheck struct {
	MaxSimilarity float64
	AvgSimilarity float64
	// id of the most similar historical outfit, zero when history is empty
	ClosestOutfitID uint
	TooSimilar      bool
}

// rotationRing is a fixed-size overwrite ring of recently suggested item ids.
type rotationRing struct {
	slots []uint
	next  int
}

func (r *rotationRing) push(id uint) {
	if len(r.slots) < rotationSlots {
		r.slots = append(r.slots, id)
		return
	}
	r.slots[r.next] = id
	r.next = (r.next + 1) % rotationSlots
}

func (r *rotationRing) contains(id uint) bool {
	for _, slot := range r.slots {
		if slot == id {
			return true
		}
	}
	return false
}

// DiversityService tracks per-user suggestion state and scores candidate
// outfits against recent history. The locks and rings maps are guarded by mu;
// ring contents are guarded by the per-user mutex so concurrent generations
// for the same user serialize instead of corrupting the ring.
type DiversityService struct {
	Store WardrobeStore

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
	rings map[uint]*rotationRing
}

func NewDiversityService(store WardrobeStore) *DiversityService {
	return &DiversityService{
		Store: store,
		locks: map[uint]*sync.Mutex{},
		rings: map[uint]*rotationRing{},
	}
}

func (s *DiversityService) userLock(userID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

func (s *DiversityService) userRing(userID uint) *rotationRing {
	s.mu.Lock()
	defer s.mu.Unlock()
	ring, ok := s.rings[userID]
	if !ok {
		ring = &rotationRing{}
		s.rings[userID] = ring
	}
	return ring
}

// LoadHistory pulls the recent outfit history used for diversity decisions,
// newest first.
func (s *DiversityService) LoadHistory(ctx context.Context, userID uint) ([]models.Outfit, error) {
	outfits, err := s.Store.RecentOutfits(ctx, userID, historyWindow)
	if err != nil {
		return nil, &DatabaseError{Op: "load outfit history", Err: err}
	}
	return outfits, nil
}

// CheckDiversity compares a candidate item set against the history window.
func (s *DiversityService) CheckDiversity(candidate []models.ClothingItem, history []models.Outfit) DiversityCheck {
	check := DiversityCheck{}
	if len(history) == 0 {
		return check
	}
	if len(history) > historyWindow {
		history = history[:historyWindow]
	}
	candidateSig := signatureFromItems(candidate)
	var total float64
	for i := range history {
		similarity := similaritySignatures(candidateSig, signatureFromOutfit(&history[i]))
		total += similarity
		if similarity > check.MaxSimilarity {
			check.MaxSimilarity = similarity
			check.ClosestOutfitID = history[i].ID
		}
	}
	check.AvgSimilarity = total / float64(len(history))
	check.TooSimilar = check.MaxSimilarity >= SimilarityThreshold
	return check
}

// usageInHistory counts how many historical outfits contain the item.
func usageInHistory(itemID uint, history []models.Outfit) int {
	uses := 0
	for i := range history {
		for _, entry := range history[i].Items {
			if entry.ClothingItemID == itemID {
				uses++
				break
			}
		}
	}
	return uses
}

func avgItemSimilarity(item *models.ClothingItem, history []models.Outfit) float64 {
	if len(history) == 0 {
		return 0
	}
	single := signatureFromItems([]models.ClothingItem{*item})
	var total float64
	for i := range history {
		total += similaritySignatures(single, signatureFromOutfit(&history[i]))
	}
	return total / float64(len(history))
}

// DiversityBoost computes the per-item score boost that nudges selection
// toward under-used pieces: +0.3 for never-worn items, +0.1 for lightly used
// ones, +0.2 when the item sits outside the recent suggestion ring, plus a
// freshness term that grows as the item diverges from recent history. Items
// in a trending style get the whole boost amplified.
func (s *DiversityService) DiversityBoost(item *models.ClothingItem, history []models.Outfit, trending []string) float64 {
	var boost float64
	switch uses := usageInHistory(item.ID, history); {
	case uses == 0:
		boost += 0.3
	case uses < 3:
		boost += 0.1
	}
	if !s.userRing(item.OwnerID).contains(item.ID) {
		boost += 0.2
	}
	boost += (1 - avgItemSimilarity(item, history)) * 0.2

	if len(trending) > 0 && tagsContainAny(item.NormalizedStyles(), lowerAll(trending)...) {
		boost *= 1.5
	}
	return boost
}

func lowerAll(values []string) []string {
	lowered := make([]string, 0, len(values))
	for _, value := range values {
		lowered = append(lowered, strings.ToLower(value))
	}
	return lowered
}

// BoostsFor computes the boost map consumed by selection, under the user
// lock.
func (s *DiversityService) BoostsFor(userID uint, wardrobe []models.ClothingItem, history []models.Outfit, trending []string) map[uint]float64 {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	boosts := make(map[uint]float64, len(wardrobe))
	for i := range wardrobe {
		boosts[wardrobe[i].ID] = s.DiversityBoost(&wardrobe[i], history, trending)
	}
	return boosts
}

// RecordOutfit pushes a suggested outfit's items into the user's rotation
// ring so the next generation deprioritizes them.
func (s *DiversityService) RecordOutfit(userID uint, items []models.ClothingItem) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ring := s.userRing(userID)
	for _, item := range items {
		ring.push(item.ID)
	}
}

// SuggestDiverseItems ranks wardrobe items by diversity boost, most
// neglected first. Used by the wardrobe insight endpoint.
func (s *DiversityService) SuggestDiverseItems(userID uint, wardrobe []models.ClothingItem, history []models.Outfit, limit int) []models.ClothingItem {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	type ranked struct {
		item  models.ClothingItem
		boost float64
	}
	candidates := make([]ranked, 0, len(wardrobe))
	for i := range wardrobe {
		candidates = append(candidates, ranked{
			item:  wardrobe[i],
			boost: s.DiversityBoost(&wardrobe[i], history, nil),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].boost > candidates[j].boost
	})
	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}
	suggested := make([]models.ClothingItem, 0, len(candidates))
	for _, candidate := range candidates {
		suggested = append(suggested, candidate.item)
	}
	return suggested
}
