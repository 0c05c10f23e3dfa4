package dispatch

import (
	"github.com/mehrantsi/feox/pkg/registry"
	"github.com/mehrantsi/feox/pkg/resp"
)

func registerPubSubCommands(table map[string]handlerFunc) {
	table["SUBSCRIBE"] = cmdSubscribe
	table["UNSUBSCRIBE"] = cmdUnsubscribe
	table["PSUBSCRIBE"] = cmdPSubscribe
	table["PUNSUBSCRIBE"] = cmdPUnsubscribe
	table["PUBLISH"] = cmdPublish
	table["PUBSUB"] = cmdPubSub
}

// subAck builds the per-channel acknowledgement array SUBSCRIBE/PSUBSCRIBE/UNSUBSCRIBE/PUNSUBSCRIBE send:
// `[kind, channel, running_count]`. Real clients expect one such array per channel argument as its own
// top-level RESP value, not one array nested inside another — see resp.Multi, which the four commands
// below use to return a batch of these without wrapping them in an outer array.
func subAck(kind, channel string, count int) resp.Reply {
	return resp.Array([]resp.Reply{
		resp.BulkString([]byte(kind)),
		resp.BulkString([]byte(channel)),
		resp.Integer(int64(count)),
	})
}

func cmdSubscribe(d *Dispatcher, conn *Conn, args [][]byte) resp.Reply {
	acks := make([]resp.Reply, 0, len(args))
	for _, ch := range args {
		d.Hub.Subscribe(conn.Sub, string(ch))
		conn.Record.TrackSubscribe(string(ch), false)
		nCh, nPat := conn.Record.SubCount()
		acks = append(acks, subAck("subscribe", string(ch), nCh+nPat))
	}
	conn.Record.SetMode(registry.Subscribed)
	return resp.Multi(acks)
}

func cmdUnsubscribe(d *Dispatcher, conn *Conn, args [][]byte) resp.Reply {
	channels := toStrings(args)
	if len(channels) == 0 {
		nCh, _ := conn.Record.SubCount()
		channels = make([]string, 0, nCh)
	}

	acks := make([]resp.Reply, 0, max(len(channels), 1))
	if len(args) == 0 {
		d.Hub.Unsubscribe(conn.Sub)
		conn.Record.TrackUnsubscribeAll()
		_, nPat := conn.Record.SubCount()
		acks = append(acks, subAck("unsubscribe", "", nPat))
	} else {
		for _, ch := range channels {
			d.Hub.Unsubscribe(conn.Sub, ch)
			conn.Record.TrackUnsubscribe(ch, false)
			nCh, nPat := conn.Record.SubCount()
			acks = append(acks, subAck("unsubscribe", ch, nCh+nPat))
		}
	}
	maybeLeaveSubscribedMode(conn)
	return resp.Multi(acks)
}

func cmdPSubscribe(d *Dispatcher, conn *Conn, args [][]byte) resp.Reply {
	acks := make([]resp.Reply, 0, len(args))
	for _, p := range args {
		d.Hub.PSubscribe(conn.Sub, string(p))
		conn.Record.TrackSubscribe(string(p), true)
		nCh, nPat := conn.Record.SubCount()
		acks = append(acks, subAck("psubscribe", string(p), nCh+nPat))
	}
	conn.Record.SetMode(registry.Subscribed)
	return resp.Multi(acks)
}

func cmdPUnsubscribe(d *Dispatcher, conn *Conn, args [][]byte) resp.Reply {
	patterns := toStrings(args)
	acks := make([]resp.Reply, 0, max(len(patterns), 1))
	if len(args) == 0 {
		d.Hub.PUnsubscribe(conn.Sub)
		conn.Record.TrackUnsubscribeAll()
		nCh, _ := conn.Record.SubCount()
		acks = append(acks, subAck("punsubscribe", "", nCh))
	} else {
		for _, p := range patterns {
			d.Hub.PUnsubscribe(conn.Sub, p)
			conn.Record.TrackUnsubscribe(p, true)
			nCh, nPat := conn.Record.SubCount()
			acks = append(acks, subAck("punsubscribe", p, nCh+nPat))
		}
	}
	maybeLeaveSubscribedMode(conn)
	return resp.Multi(acks)
}

// maybeLeaveSubscribedMode implements "Mode leaves Subscribed when subscription count returns to zero" (§4.3).
func maybeLeaveSubscribedMode(conn *Conn) {
	nCh, nPat := conn.Record.SubCount()
	if nCh == 0 && nPat == 0 {
		conn.Record.SetMode(registry.Normal)
	}
}

func cmdPublish(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	delivered := d.Hub.Publish(string(args[0]), args[1])
	return resp.Integer(int64(delivered))
}

func cmdPubSub(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	switch upperString(args[0]) {
	case "CHANNELS":
		var pattern []byte
		if len(args) > 1 {
			pattern = args[1]
		}
		channels := d.Hub.Channels(pattern)
		items := make([]resp.Reply, len(channels))
		for i, c := range channels {
			items[i] = resp.BulkString([]byte(c))
		}
		return resp.Array(items)
	case "NUMSUB":
		channels := toStrings(args[1:])
		counts := d.Hub.NumSub(channels...)
		items := make([]resp.Reply, 0, len(channels)*2)
		for i, c := range channels {
			items = append(items, resp.BulkString([]byte(c)), resp.Integer(int64(counts[i])))
		}
		return resp.Array(items)
	case "NUMPAT":
		return resp.Integer(int64(d.Hub.NumPat()))
	default:
		return resp.Error("ERR Unknown PUBSUB subcommand or wrong number of arguments")
	}
}
