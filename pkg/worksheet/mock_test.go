package worksheet

import (
	"context"
	"fmt"
)

type transportCall struct {
	Method string
	URL    string
	Body   []byte
}

type mockTransport struct {
	GetFunc    func(url string) ([]byte, error)
	PostFunc   func(url string, body []byte) ([]byte, error)
	PutFunc    func(url string, body []byte) ([]byte, error)
	DeleteFunc func(url string) ([]byte, error)
	Calls      []transportCall
}

func (m *mockTransport) Get(ctx context.Context, url string) ([]byte, error) {
	m.Calls = append(m.Calls, transportCall{Method: "GET", URL: url})
	if m.GetFunc == nil {
		return nil, fmt.Errorf("unexpected GET %s", url)
	}
	return m.GetFunc(url)
}

func (m *mockTransport) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	m.Calls = append(m.Calls, transportCall{Method: "POST", URL: url, Body: body})
	if m.PostFunc == nil {
		return nil, fmt.Errorf("unexpected POST %s", url)
	}
	return m.PostFunc(url, body)
}

func (m *mockTransport) Put(ctx context.Context, url string, body []byte) ([]byte, error) {
	m.Calls = append(m.Calls, transportCall{Method: "PUT", URL: url, Body: body})
	if m.PutFunc == nil {
		return nil, fmt.Errorf("unexpected PUT %s", url)
	}
	return m.PutFunc(url, body)
}

func (m *mockTransport) Delete(ctx context.Context, url string) ([]byte, error) {
	m.Calls = append(m.Calls, transportCall{Method: "DELETE", URL: url})
	if m.DeleteFunc == nil {
		return nil, fmt.Errorf("unexpected DELETE %s", url)
	}
	return m.DeleteFunc(url)
}

func (m *mockTransport) count(method string) int {
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}
