package collector

import "testing"

func TestSocketInode(t *testing.T) {
	cases := []struct {
		target string
		inode  uint64
		ok     bool
	}{
		{"socket:[12345]", 12345, true},
		{"pipe:[12345]", 0, false},
		{"/dev/null", 0, false},
		{"socket:[abc]", 0, false},
		{"socket:[12", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		inode, ok := socketInode(tc.target)
		if inode != tc.inode || ok != tc.ok {
			t.Fatalf("%q: expected (%d, %t), got (%d, %t)", tc.target, tc.inode, tc.ok, inode, ok)
		}
	}
}

func TestClassifySocketsFiveTCP(t *testing.T) {
	table := ProtocolTable{1: ProtoTCP, 2: ProtoTCP, 3: ProtoTCP, 4: ProtoTCP, 5: ProtoTCP}
	targets := []string{
		"/dev/null", "socket:[1]", "socket:[2]", "anon_inode:[eventpoll]",
		"socket:[3]", "socket:[4]", "socket:[5]", "",
	}

	got := classifySockets(targets, nil, table)
	want := SocketCounts{Total: 5, TCP: 5, UDP: 0}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestClassifySocketsUnknownInodeCountsOnlyTotal(t *testing.T) {
	table := ProtocolTable{10: ProtoUDP}
	got := classifySockets([]string{"socket:[10]", "socket:[11]"}, nil, table)
	want := SocketCounts{Total: 2, UDP: 1}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestClassifySocketsPrefersPerDescriptorProtocol(t *testing.T) {
	// Unbound sockets (21, 22) never show up in the namespace table.
	own := ProtocolTable{20: ProtoOther, 21: ProtoTCP, 22: ProtoUDP}
	table := ProtocolTable{20: ProtoTCP, 30: ProtoTCP}
	targets := []string{"socket:[20]", "socket:[21]", "socket:[22]", "socket:[30]"}

	got := classifySockets(targets, own, table)
	want := SocketCounts{Total: 4, TCP: 2, UDP: 1}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestUnresolved(t *testing.T) {
	own := ProtocolTable{1: ProtoTCP, 2: ProtoOther}
	if unresolved([]string{"socket:[1]", "socket:[2]", "/dev/null"}, own) {
		t.Fatal("all sockets resolved, expected false")
	}
	if !unresolved([]string{"socket:[1]", "socket:[3]"}, own) {
		t.Fatal("inode 3 unresolved, expected true")
	}
	if !unresolved([]string{"socket:[1]"}, nil) {
		t.Fatal("nil lookup, expected true")
	}
}

func TestProtoFromName(t *testing.T) {
	cases := map[string]Protocol{
		"TCP":       ProtoTCP,
		"TCPv6":     ProtoTCP,
		"UDP":       ProtoUDP,
		"UDPv6\x00": ProtoUDP,
		"UNIX":      ProtoOther,
		"NETLINK":   ProtoOther,
		"":          ProtoOther,
	}
	for name, want := range cases {
		if got := protoFromName(name); got != want {
			t.Fatalf("%q: expected %d, got %d", name, want, got)
		}
	}
}
