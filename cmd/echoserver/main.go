// Copyright 2025 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command echoserver is a minimal demonstration of the reactor facade: it
// accepts connections, echoes back whatever it reads (uppercased, so a
// client can tell the round trip actually went through application code),
// and keeps reading until the peer closes. Connection handling is
// dispatched onto concurrency/gopool so the single I/O worker goroutine
// inside the Reactor is never blocked by application logic, and framing
// uses bufiox.BytesReader/BytesWriter over each Recv/Send buffer.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"log"

	"github.com/ringproactor/reactor/bufiox"
	"github.com/ringproactor/reactor/concurrency/gopool"
	"github.com/ringproactor/reactor/netaddr"
	"github.com/ringproactor/reactor/reactor"
	"github.com/ringproactor/reactor/socket"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9000", "address to listen on")
	flag.Parse()

	gopool.SetPanicHandler(func(ctx context.Context, r interface{}) {
		log.Printf("echoserver: recovered panic in connection handler: %v", r)
	})

	ep, err := netaddr.ParseEndpoint(*addr)
	if err != nil {
		log.Fatalf("echoserver: invalid -addr %q: %v", *addr, err)
	}

	r, err := reactor.New(reactor.DefaultConfig())
	if err != nil {
		log.Fatalf("echoserver: reactor.New: %v", err)
	}
	defer r.Close()

	ln, err := socket.New(ep.Address().Family())
	if err != nil {
		log.Fatalf("echoserver: socket.New: %v", err)
	}
	if err := ln.SetOptions(socket.Options{ReuseAddress: true}); err != nil {
		log.Fatalf("echoserver: SetOptions: %v", err)
	}
	if err := ln.Bind(ep); err != nil {
		log.Fatalf("echoserver: Bind: %v", err)
	}
	if err := ln.Listen(0); err != nil {
		log.Fatalf("echoserver: Listen: %v", err)
	}
	if err := ln.SetNonBlocking(true); err != nil {
		log.Fatalf("echoserver: SetNonBlocking: %v", err)
	}
	defer ln.Close()

	log.Printf("echoserver: listening on %s", ep)

	ctx := context.Background()
	for {
		acceptTask := r.Accept(ln)
		conn, err := acceptTask.Await(ctx)
		if err != nil {
			log.Printf("echoserver: accept: %v", err)
			if errors.Is(err, reactor.ErrClosed) {
				return
			}
			continue
		}
		gopool.Go(func() {
			serve(ctx, r, conn)
		})
	}
}

// serve echoes data back to conn, uppercased, until the peer closes or an
// error occurs. It runs on a gopool worker, never on the Reactor's own
// I/O goroutine.
func serve(ctx context.Context, r *reactor.Reactor, conn *socket.Socket) {
	defer conn.Close()
	for {
		recvTask := r.Recv(conn, 4096)
		data, err := recvTask.Await(ctx)
		if err != nil {
			return
		}
		if data == nil {
			return // orderly peer shutdown
		}

		reader := bufiox.NewBytesReader(data)
		body, err := reader.Next(len(data))
		if err != nil {
			return
		}

		var out []byte
		writer := bufiox.NewBytesWriter(&out)
		if _, err := writer.WriteBinary(bytes.ToUpper(body)); err != nil {
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}

		sendTask := r.Send(conn, out)
		if _, err := sendTask.Await(ctx); err != nil {
			return
		}
	}
}
