package cluster

import "testing"

func TestDetectFromOutputMapsDNSSuffix(t *testing.T) {
	cases := []struct {
		name string
		out  string
		want Kind
	}{
		{"mammouth", "Server Info\n------\nhead.m  something else\n", Mammouth},
		{"guillimin", "Server Info\n------\nlg-1r17-n04.guil  something\n", Guillimin},
		{"helios", "Server Info\n------\nhelios1.calculquebec.helios extra\n", Helios},
		{"unknown suffix", "Server Info\n------\nhead.example.com  stuff\n", Generic},
		{"too few lines", "only one line", Generic},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := detectFromOutput([]byte(c.out)); got != c.want {
				t.Fatalf("got %v, want %v", got, c.want)
			}
		})
	}
}
