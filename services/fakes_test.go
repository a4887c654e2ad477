package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/kuanyshev/lastman-system/models"
	"github.com/kuanyshev/lastman-system/repositories"
	"github.com/kuanyshev/lastman-system/storage"
)

// Общие in-memory фейки репозиториев для тестов сервисного слоя.

type fakeRoundRepo struct {
	rounds map[int]models.Round
}

func newFakeRoundRepo(rounds ...models.Round) *fakeRoundRepo {
	repo := &fakeRoundRepo{rounds: make(map[int]models.Round)}
	for _, r := range rounds {
		repo.rounds[r.ID] = r
	}
	return repo
}

func (f *fakeRoundRepo) GetByID(_ context.Context, id int) (*models.Round, error) {
	round, ok := f.rounds[id]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	return &round, nil
}

func (f *fakeRoundRepo) ListByCompetition(_ context.Context, competitionID int) ([]models.Round, error) {
	var result []models.Round
	for _, r := range f.rounds {
		if r.CompetitionID == competitionID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RoundNumber < result[j].RoundNumber })
	return result, nil
}

func (f *fakeRoundRepo) GetByCompetitionAndNumber(_ context.Context, competitionID, roundNumber int) (*models.Round, error) {
	for _, r := range f.rounds {
		if r.CompetitionID == competitionID && r.RoundNumber == roundNumber {
			round := r
			return &round, nil
		}
	}
	return nil, repositories.ErrRoundNotFound
}

type fakePickRepo struct {
	mu     sync.Mutex
	nextID int
	picks  map[[2]int]models.Pick // (userID, roundID) -> pick
	rounds *fakeRoundRepo
}

func newFakePickRepo(rounds *fakeRoundRepo) *fakePickRepo {
	return &fakePickRepo{picks: make(map[[2]int]models.Pick), rounds: rounds}
}

func (f *fakePickRepo) GetByUserAndRound(_ context.Context, userID, roundID int) (*models.Pick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pick, ok := f.picks[[2]int{userID, roundID}]
	if !ok {
		return nil, repositories.ErrPickNotFound
	}
	return &pick, nil
}

func (f *fakePickRepo) ListByUserAndCompetition(_ context.Context, userID, competitionID int) ([]models.Pick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.Pick
	for _, p := range f.picks {
		if p.UserID != userID {
			continue
		}
		round, ok := f.rounds.rounds[p.RoundID]
		if ok && round.CompetitionID == competitionID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RoundID < result[j].RoundID })
	return result, nil
}

func (f *fakePickRepo) Upsert(_ context.Context, pick *models.Pick) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rounds.rounds[pick.RoundID]; !ok {
		return repositories.ErrPickRoundInvalid
	}
	key := [2]int{pick.UserID, pick.RoundID}
	if existing, ok := f.picks[key]; ok {
		pick.ID = existing.ID
	} else {
		f.nextID++
		pick.ID = f.nextID
	}
	f.picks[key] = *pick
	return nil
}

func (f *fakePickRepo) LockExpired(_ context.Context, _ repositories.SQLExecutor, now time.Time) ([]models.Pick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var locked []models.Pick
	for key, p := range f.picks {
		if p.Status != models.PickPending {
			continue
		}
		round, ok := f.rounds.rounds[p.RoundID]
		if !ok || !round.DeadlinePassed(now) {
			continue
		}
		p.Status = models.PickLocked
		f.picks[key] = p
		locked = append(locked, p)
	}
	return locked, nil
}

func (f *fakePickRepo) EliminateByRoundAndTeams(_ context.Context, _ repositories.SQLExecutor, roundID int, teamIDs []int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	targets := make(map[int]bool, len(teamIDs))
	for _, id := range teamIDs {
		targets[id] = true
	}
	count := 0
	for key, p := range f.picks {
		if p.RoundID != roundID || !targets[p.TeamID] || !p.Status.InPlay() {
			continue
		}
		p.Status = models.PickEliminated
		f.picks[key] = p
		count++
	}
	return count, nil
}

type fakeCompetitionRepo struct {
	competitions map[int]models.Competition
}

func newFakeCompetitionRepo(competitions ...models.Competition) *fakeCompetitionRepo {
	repo := &fakeCompetitionRepo{competitions: make(map[int]models.Competition)}
	for _, c := range competitions {
		repo.competitions[c.ID] = c
	}
	return repo
}

func (f *fakeCompetitionRepo) GetByID(_ context.Context, id int) (*models.Competition, error) {
	c, ok := f.competitions[id]
	if !ok {
		return nil, repositories.ErrCompetitionNotFound
	}
	return &c, nil
}

func (f *fakeCompetitionRepo) List(_ context.Context, filter repositories.ListCompetitionsFilter) ([]models.Competition, error) {
	var result []models.Competition
	for _, c := range f.competitions {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.Sport != nil && c.Sport != *filter.Sport {
			continue
		}
		if filter.LeagueID != nil && c.LeagueID != *filter.LeagueID {
			continue
		}
		if filter.Season != nil && c.Season != *filter.Season {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeCompetitionRepo) UpdateCrestKey(_ context.Context, competitionID int, crestKey *string) error {
	c, ok := f.competitions[competitionID]
	if !ok {
		return repositories.ErrCompetitionNotFound
	}
	c.CrestKey = crestKey
	f.competitions[competitionID] = c
	return nil
}

type fakeGameweekRepo struct {
	gameweeks map[int]models.Gameweek
	failIDs   map[int]bool // UpdateFlags для этих ID возвращает ошибку
}

func newFakeGameweekRepo(gameweeks ...models.Gameweek) *fakeGameweekRepo {
	repo := &fakeGameweekRepo{gameweeks: make(map[int]models.Gameweek), failIDs: make(map[int]bool)}
	for _, gw := range gameweeks {
		repo.gameweeks[gw.ID] = gw
	}
	return repo
}

func (f *fakeGameweekRepo) GetByID(_ context.Context, id int) (*models.Gameweek, error) {
	gw, ok := f.gameweeks[id]
	if !ok {
		return nil, repositories.ErrGameweekNotFound
	}
	return &gw, nil
}

func (f *fakeGameweekRepo) GetByNumber(_ context.Context, leagueID, season, gameweekNumber int) (*models.Gameweek, error) {
	for _, gw := range f.gameweeks {
		if gw.LeagueID == leagueID && gw.Season == season && gw.GameweekNumber == gameweekNumber {
			found := gw
			return &found, nil
		}
	}
	return nil, repositories.ErrGameweekNotFound
}

func (f *fakeGameweekRepo) ListByLeagueSeason(_ context.Context, leagueID, season int) ([]models.Gameweek, error) {
	var result []models.Gameweek
	for _, gw := range f.gameweeks {
		if gw.LeagueID == leagueID && gw.Season == season {
			result = append(result, gw)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DeadlineTime.Before(result[j].DeadlineTime) })
	return result, nil
}

func (f *fakeGameweekRepo) UpdateFlags(_ context.Context, _ repositories.SQLExecutor, gw *models.Gameweek) error {
	if f.failIDs[gw.ID] {
		return errors.New("update failed")
	}
	if _, ok := f.gameweeks[gw.ID]; !ok {
		return repositories.ErrGameweekNotFound
	}
	f.gameweeks[gw.ID] = *gw
	return nil
}

type fakeTeamRepo struct {
	teams []models.Team
}

func (f *fakeTeamRepo) GetByID(_ context.Context, id int) (*models.Team, error) {
	for _, t := range f.teams {
		if t.ID == id {
			team := t
			return &team, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (f *fakeTeamRepo) GetByExternalID(_ context.Context, externalAPIID int) (*models.Team, error) {
	for _, t := range f.teams {
		if t.ExternalAPIID == externalAPIID {
			team := t
			return &team, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (f *fakeTeamRepo) GetByIDs(_ context.Context, ids []int) (map[int]models.Team, error) {
	result := make(map[int]models.Team)
	for _, id := range ids {
		for _, t := range f.teams {
			if t.ID == id {
				result[id] = t
			}
		}
	}
	return result, nil
}

func (f *fakeTeamRepo) GetByExternalIDs(_ context.Context, externalAPIIDs []int) (map[int]models.Team, error) {
	result := make(map[int]models.Team)
	for _, id := range externalAPIIDs {
		for _, t := range f.teams {
			if t.ExternalAPIID == id {
				result[id] = t
			}
		}
	}
	return result, nil
}

func (f *fakeTeamRepo) UpdateCrestKey(_ context.Context, teamID int, crestKey *string) error {
	for i := range f.teams {
		if f.teams[i].ID == teamID {
			f.teams[i].CrestKey = crestKey
			return nil
		}
	}
	return repositories.ErrTeamNotFound
}

type fakeFixtureRepo struct {
	mu       sync.Mutex
	fixtures map[int]models.Fixture
}

func newFakeFixtureRepo(fixtures ...models.Fixture) *fakeFixtureRepo {
	repo := &fakeFixtureRepo{fixtures: make(map[int]models.Fixture)}
	for _, f := range fixtures {
		repo.fixtures[f.ID] = f
	}
	return repo
}

func (f *fakeFixtureRepo) ListByGameweek(_ context.Context, gameweekID int) ([]models.Fixture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.Fixture
	for _, fx := range f.fixtures {
		if fx.GameweekID == gameweekID {
			result = append(result, fx)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeFixtureRepo) ListUnprocessedFullTime(_ context.Context) ([]models.Fixture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.Fixture
	for _, fx := range f.fixtures {
		if fx.Status == models.FixtureFullTime && !fx.ResultsProcessed {
			result = append(result, fx)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeFixtureRepo) MarkResultsProcessed(_ context.Context, _ repositories.SQLExecutor, fixtureID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fx, ok := f.fixtures[fixtureID]
	if !ok {
		return repositories.ErrFixtureNotFound
	}
	fx.ResultsProcessed = true
	f.fixtures[fixtureID] = fx
	return nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	nextID   int
	payments map[[2]int]models.Payment // (userID, competitionID)
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[[2]int]models.Payment)}
}

func (f *fakePaymentRepo) Create(_ context.Context, payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int{payment.UserID, payment.CompetitionID}
	if _, ok := f.payments[key]; ok {
		return repositories.ErrPaymentConflict
	}
	f.nextID++
	payment.ID = f.nextID
	payment.CreatedAt = time.Now()
	f.payments[key] = *payment
	return nil
}

func (f *fakePaymentRepo) GetByUserAndCompetition(_ context.Context, userID, competitionID int) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[[2]int{userID, competitionID}]
	if !ok {
		return nil, repositories.ErrPaymentNotFound
	}
	return &p, nil
}

type fakeUploader struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
	baseURL  string
}

func (f *fakeUploader) Upload(_ context.Context, key, _ string, _ io.Reader) (*storage.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, key)
	return &storage.UploadResult{Key: key, Location: f.baseURL + "/" + key}, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeUploader) GetPublicURL(key string) string {
	return f.baseURL + "/" + key
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []interface{}
	rooms    []string
}

func (f *fakeBroadcaster) BroadcastToRoom(roomID string, message interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = append(f.rooms, roomID)
	f.messages = append(f.messages, message)
}

func intPtr(v int) *int { return &v }
