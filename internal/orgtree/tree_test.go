package orgtree

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/boothboard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	acmeID   = uuid.MustParse("10000000-0000-0000-0000-000000000001")
	globexID = uuid.MustParse("10000000-0000-0000-0000-000000000002")

	hqID      = uuid.MustParse("20000000-0000-0000-0000-000000000001")
	floor1ID  = uuid.MustParse("20000000-0000-0000-0000-000000000002")
	floor2ID  = uuid.MustParse("20000000-0000-0000-0000-000000000003")
	globexHQ  = uuid.MustParse("20000000-0000-0000-0000-000000000004")
	missingID = uuid.MustParse("2fffffff-0000-0000-0000-000000000000")

	boothA = uuid.MustParse("30000000-0000-0000-0000-000000000001")
	boothB = uuid.MustParse("30000000-0000-0000-0000-000000000002")
	boothC = uuid.MustParse("30000000-0000-0000-0000-000000000003")
	boothD = uuid.MustParse("30000000-0000-0000-0000-000000000004")
)

func fixtures() ([]models.Client, []models.OrgUnit, []models.Booth) {
	clients := []models.Client{
		{ID: globexID, Name: "Globex"},
		{ID: acmeID, Name: "Acme"},
	}
	units := []models.OrgUnit{
		{ID: floor2ID, ClientID: acmeID, ParentID: &hqID, Name: "Floor 2"},
		{ID: hqID, ClientID: acmeID, Name: "Headquarters"},
		{ID: floor1ID, ClientID: acmeID, ParentID: &hqID, Name: "Floor 1"},
		{ID: globexHQ, ClientID: globexID, Name: "Main Office"},
	}
	booths := []models.Booth{
		{ID: boothB, OrgUnitID: floor1ID, Name: "Quiet", SerialNumber: "SN-2"},
		{ID: boothA, OrgUnitID: floor1ID, Name: "Focus", SerialNumber: "SN-1"},
		{ID: boothC, OrgUnitID: hqID, Name: "Lobby", SerialNumber: "SN-3"},
		{ID: boothD, OrgUnitID: globexHQ, Name: "Pod", SerialNumber: "SN-4"},
	}
	return clients, units, booths
}

func names(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func TestBuild_Structure(t *testing.T) {
	root := Build(fixtures())

	assert.Equal(t, RootID, root.ID)
	assert.Equal(t, KindRoot, root.Kind)
	require.Equal(t, []string{"Acme", "Globex"}, names(root.Children))

	acme := root.Children[0]
	assert.Equal(t, KindClient, acme.Kind)
	require.Equal(t, []string{"Headquarters"}, names(acme.Children))

	hq := acme.Children[0]
	assert.Equal(t, KindOrgUnit, hq.Kind)
	assert.Equal(t, []string{"Floor 1", "Floor 2", "Lobby (SN-3)"}, names(hq.Children))

	floor1 := hq.Children[0]
	assert.Equal(t, []string{"Focus (SN-1)", "Quiet (SN-2)"}, names(floor1.Children))
	for _, b := range floor1.Children {
		assert.Equal(t, KindBooth, b.Kind)
		assert.Empty(t, b.Children)
	}
	assert.Empty(t, hq.Children[1].Children)
}

func TestBuild_ValueAndLabel(t *testing.T) {
	root := Build(fixtures())
	booth := root.Find(boothA.String())
	require.NotNil(t, booth)
	assert.Equal(t, boothA.String(), booth.Value())
	assert.Equal(t, "Focus (SN-1)", booth.Label())
}

func TestBuild_EmptyInputs(t *testing.T) {
	root := Build(nil, nil, nil)
	assert.Equal(t, RootID, root.ID)
	assert.NotNil(t, root.Children)
	assert.Empty(t, root.Children)
}

func TestBuild_DeterministicAcrossInputOrder(t *testing.T) {
	clients, units, booths := fixtures()
	want := Build(clients, units, booths)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		rng.Shuffle(len(clients), func(a, b int) { clients[a], clients[b] = clients[b], clients[a] })
		rng.Shuffle(len(units), func(a, b int) { units[a], units[b] = units[b], units[a] })
		rng.Shuffle(len(booths), func(a, b int) { booths[a], booths[b] = booths[b], booths[a] })
		assert.Equal(t, want, Build(clients, units, booths))
	}
}

func TestBuild_OrphanOrgUnitBecomesTopLevel(t *testing.T) {
	clients := []models.Client{{ID: acmeID, Name: "Acme"}}
	units := []models.OrgUnit{
		{ID: floor1ID, ClientID: acmeID, ParentID: &missingID, Name: "Orphan Floor"},
	}
	root := Build(clients, units, nil)

	acme := root.Children[0]
	require.Len(t, acme.Children, 1)
	assert.Equal(t, floor1ID.String(), acme.Children[0].ID)
}

func TestBuild_CrossClientParentIsIgnored(t *testing.T) {
	clients := []models.Client{{ID: acmeID, Name: "Acme"}, {ID: globexID, Name: "Globex"}}
	units := []models.OrgUnit{
		{ID: hqID, ClientID: acmeID, Name: "Headquarters"},
		{ID: globexHQ, ClientID: globexID, ParentID: &hqID, Name: "Main Office"},
	}
	root := Build(clients, units, nil)

	acme, globex := root.Children[0], root.Children[1]
	require.Len(t, acme.Children, 1)
	assert.Empty(t, acme.Children[0].Children)
	require.Len(t, globex.Children, 1)
	assert.Equal(t, globexHQ.String(), globex.Children[0].ID)
}

func TestBuild_OrphanBoothOmitted(t *testing.T) {
	clients, units, booths := fixtures()
	booths = append(booths, models.Booth{ID: uuid.New(), OrgUnitID: missingID, Name: "Lost", SerialNumber: "X"})

	root := Build(clients, units, booths)
	assert.Len(t, root.BoothIDs(), 4)
}

func TestBuild_UnitOfUnknownClientOmitted(t *testing.T) {
	clients := []models.Client{{ID: acmeID, Name: "Acme"}}
	units := []models.OrgUnit{{ID: globexHQ, ClientID: globexID, Name: "Main Office"}}
	booths := []models.Booth{{ID: boothD, OrgUnitID: globexHQ, Name: "Pod", SerialNumber: "SN-4"}}

	root := Build(clients, units, booths)
	assert.Nil(t, root.Find(globexHQ.String()))
	assert.Empty(t, root.BoothIDs())
}

func TestBuild_ParentCycleIsBroken(t *testing.T) {
	clients := []models.Client{{ID: acmeID, Name: "Acme"}}
	units := []models.OrgUnit{
		{ID: hqID, ClientID: acmeID, ParentID: &floor2ID, Name: "A"},
		{ID: floor1ID, ClientID: acmeID, ParentID: &hqID, Name: "B"},
		{ID: floor2ID, ClientID: acmeID, ParentID: &floor1ID, Name: "C"},
	}
	root := Build(clients, units, nil)

	acme := root.Children[0]
	require.Len(t, acme.Children, 1)
	// hqID is the lowest id in the cycle, so it becomes top-level.
	assert.Equal(t, hqID.String(), acme.Children[0].ID)
	require.Len(t, acme.Children[0].Children, 1)
	assert.Equal(t, floor1ID.String(), acme.Children[0].Children[0].ID)
	require.Len(t, acme.Children[0].Children[0].Children, 1)
	assert.Equal(t, floor2ID.String(), acme.Children[0].Children[0].Children[0].ID)
}

func TestBuild_SelfParentIsTopLevel(t *testing.T) {
	clients := []models.Client{{ID: acmeID, Name: "Acme"}}
	units := []models.OrgUnit{{ID: hqID, ClientID: acmeID, ParentID: &hqID, Name: "Loop"}}

	root := Build(clients, units, nil)
	require.Len(t, root.Children[0].Children, 1)
	assert.Equal(t, hqID.String(), root.Children[0].Children[0].ID)
}

func TestBuild_EveryNodeAppearsOnce(t *testing.T) {
	root := Build(fixtures())

	seen := map[string]int{}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		seen[n.ID]++
		stack = append(stack, n.Children...)
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "node %s", id)
	}
	// root + 2 clients + 4 units + 4 booths
	assert.Len(t, seen, 11)
}

func TestBuild_LocaleAwareOrdering(t *testing.T) {
	clients := []models.Client{
		{ID: uuid.New(), Name: "Zeta"},
		{ID: uuid.New(), Name: "Émile"},
		{ID: uuid.New(), Name: "alpha"},
		{ID: uuid.New(), Name: "Beta"},
	}
	root := Build(clients, nil, nil)
	assert.Equal(t, []string{"alpha", "Beta", "Émile", "Zeta"}, names(root.Children))
}

func TestBuild_EqualNamesOrderedByID(t *testing.T) {
	first := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	second := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	clients := []models.Client{{ID: second, Name: "Same"}, {ID: first, Name: "Same"}}

	root := Build(clients, nil, nil)
	assert.Equal(t, first.String(), root.Children[0].ID)
	assert.Equal(t, second.String(), root.Children[1].ID)
}

func TestBuild_DuplicateIDsKeepSmallestName(t *testing.T) {
	clients := []models.Client{{ID: acmeID, Name: "Acme Copy"}, {ID: acmeID, Name: "Acme"}}
	root := Build(clients, nil, nil)
	assert.Equal(t, []string{"Acme"}, names(root.Children))
}

func TestBuild_DuplicateIDsIndependentOfInputOrder(t *testing.T) {
	clients, units, booths := fixtures()
	clients = append(clients, models.Client{ID: globexID, Name: "Globex Old"})
	units = append(units,
		models.OrgUnit{ID: floor1ID, ClientID: acmeID, Name: "Floor One"},
		models.OrgUnit{ID: floor2ID, ClientID: globexID, Name: "Floor 2"},
		models.OrgUnit{ID: globexHQ, ClientID: missingID, Name: "Ghost"},
	)
	booths = append(booths,
		models.Booth{ID: boothA, OrgUnitID: hqID, Name: "Focus", SerialNumber: "SN-1"},
		models.Booth{ID: boothD, OrgUnitID: missingID, Name: "Pod", SerialNumber: "SN-4"},
	)
	want := Build(clients, units, booths)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		rng.Shuffle(len(clients), func(a, b int) { clients[a], clients[b] = clients[b], clients[a] })
		rng.Shuffle(len(units), func(a, b int) { units[a], units[b] = units[b], units[a] })
		rng.Shuffle(len(booths), func(a, b int) { booths[a], booths[b] = booths[b], booths[a] })
		require.Equal(t, want, Build(clients, units, booths))
	}

	assert.Equal(t, []string{"Acme", "Globex"}, names(want.Children))
	// Pod stays under Main Office: its copy under an unknown unit is not admitted.
	globex := want.Children[1]
	require.Len(t, globex.Children, 1)
	assert.Equal(t, "Main Office", globex.Children[0].Name)
	assert.Equal(t, []string{"Pod (SN-4)"}, names(globex.Children[0].Children))
}
