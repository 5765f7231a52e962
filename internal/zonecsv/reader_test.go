package zonecsv

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlpipe/taxi-zone-cleaner/internal/zone"
)

const header = "LocationID,Borough,Zone,service_zone\n"

func read(t *testing.T, input string, opts Options) ([]zone.RawRecord, Stats) {
	t.Helper()
	recs, stats, err := Read(context.Background(), strings.NewReader(input), opts)
	require.NoError(t, err)
	return recs, stats
}

func TestRead_Permissive(t *testing.T) {
	input := header +
		"1,EWR,Newark Airport,EWR\n" +
		"2,Queens,Jamaica Bay,Boro Zone,extra\n" +
		"abc,Bronx,Allerton,Boro Zone\n" +
		"5,Manhattan,Alpha\"bet,Yellow Zone\n" +
		"6,Brooklyn,,Boro Zone\n"

	recs, stats := read(t, input, Options{Header: true})

	t.Run("Should keep every row", func(t *testing.T) {
		require.Len(t, recs, 5)
		assert.Equal(t, Stats{Rows: 5, Malformed: 3}, stats)
	})

	t.Run("Should populate business fields of well-formed rows", func(t *testing.T) {
		assert.Equal(t, zone.RawRecord{Record: zone.Record{
			LocationID:  zone.Int(1),
			Borough:     zone.Str("EWR"),
			Zone:        zone.Str("Newark Airport"),
			ServiceZone: zone.Str("EWR"),
		}}, recs[0])
	})

	t.Run("Should capture malformed rows as raw text only", func(t *testing.T) {
		for i, want := range map[int]string{
			1: "2,Queens,Jamaica Bay,Boro Zone,extra",
			2: "abc,Bronx,Allerton,Boro Zone",
			3: "5,Manhattan,Alpha\"bet,Yellow Zone",
		} {
			require.NotNil(t, recs[i].CorruptRecord, "row %d", i)
			assert.Equal(t, want, *recs[i].CorruptRecord)
			assert.True(t, recs[i].AllAbsent(), "row %d", i)
		}
	})

	t.Run("Should read empty values as absent", func(t *testing.T) {
		assert.Nil(t, recs[4].CorruptRecord)
		assert.Nil(t, recs[4].Zone)
		assert.Equal(t, "Boro Zone", *recs[4].ServiceZone)
	})

	t.Run("Should confine an unterminated quote to its own line", func(t *testing.T) {
		input := header +
			"1,EWR,Newark Airport,EWR\n" +
			"2,Queens,\"Jamaica Bay,Boro Zone\n" +
			"3,Bronx,Allerton,Boro Zone\r\n" +
			"\n" +
			"4,Manhattan,Kips Bay,Yellow Zone"

		recs, stats := read(t, input, Options{Header: true})
		require.Len(t, recs, 4)
		assert.Equal(t, Stats{Rows: 4, Malformed: 1}, stats)

		require.NotNil(t, recs[1].CorruptRecord)
		assert.Equal(t, "2,Queens,\"Jamaica Bay,Boro Zone", *recs[1].CorruptRecord)
		assert.True(t, recs[1].AllAbsent())

		assert.Nil(t, recs[2].CorruptRecord)
		assert.Equal(t, int32(3), *recs[2].LocationID)
		assert.Equal(t, "Boro Zone", *recs[2].ServiceZone)
		assert.Nil(t, recs[3].CorruptRecord)
		assert.Equal(t, "Yellow Zone", *recs[3].ServiceZone)
	})
}

func TestRead_Modes(t *testing.T) {
	input := header + "1,EWR,Newark Airport,EWR\nx,,,\n3,Manhattan,Alphabet City,Yellow Zone\n"

	t.Run("Should skip malformed rows when dropping", func(t *testing.T) {
		recs, stats := read(t, input, Options{Header: true, Mode: DropMalformed})
		require.Len(t, recs, 2)
		assert.Equal(t, int32(3), *recs[1].LocationID)
		assert.Equal(t, Stats{Rows: 3, Malformed: 1, Dropped: 1}, stats)
	})

	t.Run("Should abort on the first malformed row when failing fast", func(t *testing.T) {
		_, stats, err := Read(context.Background(), strings.NewReader(input), Options{Header: true, Mode: FailFast})
		require.ErrorIs(t, err, ErrMalformedRow)
		assert.Contains(t, err.Error(), "row 2")
		assert.Equal(t, 1, stats.Malformed)
	})
}

func TestRead_Header(t *testing.T) {
	t.Run("Should bind columns by name ignoring case order and extras", func(t *testing.T) {
		input := "\ufeffservice_zone, zone ,Extra,BOROUGH,locationid\nYellow Zone,Kips Bay,x,Manhattan,170\n"
		recs, _ := read(t, input, Options{Header: true})
		require.Len(t, recs, 1)
		assert.Equal(t, zone.Record{
			LocationID:  zone.Int(170),
			Borough:     zone.Str("Manhattan"),
			Zone:        zone.Str("Kips Bay"),
			ServiceZone: zone.Str("Yellow Zone"),
		}, recs[0].Record)
	})

	t.Run("Should fail when a business column is missing", func(t *testing.T) {
		_, _, err := Read(context.Background(), strings.NewReader("LocationID,Borough,Zone\n1,a,b\n"), Options{Header: true})
		require.ErrorIs(t, err, ErrMissingColumn)
	})

	t.Run("Should bind positionally without a header", func(t *testing.T) {
		recs, stats := read(t, "7,Queens,Astoria,Boro Zone\n", Options{})
		require.Len(t, recs, 1)
		assert.Equal(t, int32(7), *recs[0].LocationID)
		assert.Equal(t, "Astoria", *recs[0].Zone)
		assert.Equal(t, 1, stats.Rows)
	})

	t.Run("Should return nothing for empty input", func(t *testing.T) {
		recs, stats := read(t, "", Options{Header: true})
		assert.Empty(t, recs)
		assert.Zero(t, stats.Rows)
	})
}

func TestRead_Values(t *testing.T) {
	t.Run("Should treat configured tokens as absent", func(t *testing.T) {
		recs, _ := read(t, header+"264,Unknown,N/A,N/A\n", Options{Header: true, NullValues: []string{"N/A"}})
		require.Len(t, recs, 1)
		assert.Equal(t, "Unknown", *recs[0].Borough)
		assert.Nil(t, recs[0].Zone)
		assert.Nil(t, recs[0].ServiceZone)
	})

	t.Run("Should keep whitespace-only values as present", func(t *testing.T) {
		recs, _ := read(t, header+"8,  ,Astoria Park,\tBoro Zone\n", Options{Header: true})
		require.Len(t, recs, 1)
		assert.Equal(t, "  ", *recs[0].Borough)
		assert.Equal(t, "\tBoro Zone", *recs[0].ServiceZone)
	})

	t.Run("Should honour a custom delimiter and quoted fields", func(t *testing.T) {
		input := "LocationID;Borough;Zone;service_zone\n9;Queens;\"Bay Terrace; Fort Totten\";Boro Zone\n"
		recs, _ := read(t, input, Options{Header: true, Delimiter: ';'})
		require.Len(t, recs, 1)
		assert.Equal(t, "Bay Terrace; Fort Totten", *recs[0].Zone)
	})

	t.Run("Should reject a LocationID outside int32", func(t *testing.T) {
		recs, stats := read(t, header+"3000000000,Queens,Astoria,Boro Zone\n", Options{Header: true})
		require.Len(t, recs, 1)
		assert.NotNil(t, recs[0].CorruptRecord)
		assert.Equal(t, 1, stats.Malformed)
	})
}

func TestRead_Cancelled(t *testing.T) {
	t.Run("Should stop when the context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := Read(ctx, strings.NewReader(header+"1,a,b,c\n"), Options{Header: true})
		require.ErrorIs(t, err, context.Canceled)
	})
}
