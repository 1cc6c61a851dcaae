// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDial(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	type message struct {
		kind int
		data string
	}
	messages := make(chan message, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			kind, data, err := ws.ReadMessage()
			if err != nil {
				close(messages)
				return
			}
			messages <- message{kind, string(data)}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := Dial(context.Background(), url)
	require.NoError(t, err)

	// 两次 Write 一次 Flush 组成一个消息
	conn.Write([]byte("jpeg$1000"))
	conn.Write([]byte("$frag-1\n"))
	require.NoError(t, conn.Flush())
	require.NoError(t, conn.Flush())
	conn.Write([]byte("jpeg$2000$frag-1\n"))
	require.NoError(t, conn.Flush())
	assert.Equal(t, int64(34), conn.Flow().GetSample().OutBytes)
	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())

	// 关闭后的写入返回错误
	_, err = conn.Write([]byte("late"))
	assert.Equal(t, ErrClosed, err)
	assert.Equal(t, ErrClosed, conn.Flush())
	assert.Nil(t, conn.RemoteAddr())

	var got []message
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case m, ok := <-messages:
			if !ok {
				done = true
				break
			}
			got = append(got, m)
		case <-timeout:
			t.Fatal("timeout")
		}
	}

	require.Len(t, got, 2)
	assert.Equal(t, websocket.TextMessage, got[0].kind)
	assert.Equal(t, "jpeg$1000$frag-1\n", got[0].data)
	assert.Equal(t, "jpeg$2000$frag-1\n", got[1].data)
}
