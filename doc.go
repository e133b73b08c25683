/*
Package gooseberry runs a small set of composable behaviours over a libp2p
host: it greets every newly connected peer, redials peers it dialed when
their connection drops, and bootstraps peer discovery through a Kademlia DHT.

# Features

  - One-shot greeting protocol on /golem/1.0.0 (one varint-framed UTF-8 message per stream)
  - Behaviour composition with ordered fan-out and first-ready polling
  - Automatic redial of dialed peers, with optional exponential backoff
  - Find-node bootstrap on every new connection
  - Peer address table, optionally persisted as JSON
  - Non-blocking event notifications
  - Prometheus metrics and OpenTelemetry tracing adapters

# Quick Start

Create a node:

	_, privateKey, _ := ed25519.GenerateKey(rand.Reader)
	listenAddr, _ := multiaddr.NewMultiaddr("/ip4/0.0.0.0/tcp/9000")

	cfg := gooseberry.NewConfig(privateKey,
		[]multiaddr.Multiaddr{listenAddr},
		gooseberry.WithGreeting("Hello!"),
	)

	node, err := gooseberry.New(cfg)
	if err != nil {
		// Handle error
	}

	node.Start()
	defer node.Stop()

Dial a peer by its full address:

	addr, _ := multiaddr.NewMultiaddr("/ip4/10.0.0.2/tcp/9000/p2p/12D3KooW...")
	node.Dial(addr)

Handle events:

	for event := range node.Events() {
		switch event.Kind {
		case gooseberry.EventConnected:
			fmt.Printf("Connected to %s\n", event.PeerID)
		case gooseberry.EventBehaviour:
			switch p := event.Payload.(type) {
			case gooseberry.GreetingReceived:
				fmt.Printf("%s says %q\n", p.Peer, p.Message)
			case gooseberry.AddressDiscovered:
				fmt.Printf("%s is at %s\n", p.Peer, p.Addr)
			}
		}
	}

Look up a peer:

	addr, err := node.LookupPeer(peerID)
	if errors.Is(err, gooseberry.ErrUnknownPeer) {
		// A find-node query is running; wait for AddressDiscovered.
	}

# Architecture

A Node owns a swarm (pkg/swarm) that drives a composed behaviour
(pkg/behaviour) from a single goroutine. Connection notifications, inbound
exchanges and DHT results are fed into the loop; behaviours answer with
actions (dial an address, send a message, emit an event) that the swarm
executes in the background. Behaviours never block and never touch the
network directly.

# Thread Safety

All public Node methods are thread-safe and can be called concurrently.
The Events channel is meant for a single consumer.
*/
package gooseberry
