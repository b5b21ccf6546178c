// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskStatusHandler(t *testing.T, responses ...string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/dataservice/device/action/status/", func(w http.ResponseWriter, r *http.Request) {
		body := responses[len(responses)-1]
		if calls < len(responses) {
			body = responses[calls]
		}
		calls++
		w.Write([]byte(body))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &calls
}

func TestWaitForCompletedSuccess(t *testing.T) {
	server, calls := taskStatusHandler(t,
		`{"data":[{"status":"In progress","statusId":"in_progress","currentActivity":"Installing"}]}`,
		`{"data":[{"status":"In progress","statusId":"in_progress","currentActivity":"Rebooting"}]}`,
		`{"data":[{"status":"Success","statusId":"success","host-name":"vm1"}]}`,
	)

	client := testClient(t, server)
	result, err := client.Task("install-1").WaitForCompleted(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Result)
	require.Len(t, result.SubTasks, 1)
	assert.Equal(t, "vm1", result.SubTasks[0].HostName)
	assert.Equal(t, 3, *calls)
}

func TestWaitForCompletedValidationFailure(t *testing.T) {
	server, calls := taskStatusHandler(t,
		`{"validation":{"status":"Validation failure","statusId":"validation_failure",
			"activity":["[9-Sep-2025] Validation failed"]},"data":[]}`,
	)

	client := testClient(t, server)
	_, err := client.Task("install-2").WaitForCompleted(context.Background())
	var validationErr *TaskValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "install-2", validationErr.TaskID)
	assert.Equal(t, 1, *calls, "wait must abort on the first poll")
}

func TestWaitForCompletedValidationAbsent(t *testing.T) {
	server, _ := taskStatusHandler(t,
		`{"data":[{"status":"Success","statusId":"success"}]}`,
	)

	client := testClient(t, server)
	result, err := client.Task("t1").WaitForCompleted(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Result)
}

func TestWaitForCompletedEmptyResponse(t *testing.T) {
	server, calls := taskStatusHandler(t, `{"data":[]}`)

	client := testClient(t, server)
	_, err := client.Task("t2").WaitForCompleted(context.Background(),
		WaitTimeout(10*time.Second), WaitInterval(3*time.Second))
	var emptyErr *EmptyTaskResponseError
	require.ErrorAs(t, err, &emptyErr)
	assert.Equal(t, "t2", emptyErr.TaskID)
	assert.Equal(t, 4, *calls, "10s timeout at 3s interval is 4 polls")
}

func TestWaitForCompletedTimeoutKeepsLastSubTasks(t *testing.T) {
	server, _ := taskStatusHandler(t,
		`{"data":[{"status":"In progress","statusId":"in_progress","host-name":"vm1"}]}`,
	)

	client := testClient(t, server)
	result, err := client.Task("t3").WaitForCompleted(context.Background(),
		WaitTimeout(10*time.Second), WaitInterval(5*time.Second))
	require.NoError(t, err)
	assert.False(t, result.Result)
	require.Len(t, result.SubTasks, 1)
	assert.Equal(t, "vm1", result.SubTasks[0].HostName)
}

func TestWaitForCompletedEitherClassifier(t *testing.T) {
	// status and statusId disagree; either one in a terminal set finishes
	// the subtask, success is judged on status alone.
	server, _ := taskStatusHandler(t,
		`{"data":[{"status":"Success","statusId":"bogus"},{"status":"Done","statusId":"failure"}]}`,
	)

	client := testClient(t, server)
	result, err := client.Task("t4").WaitForCompleted(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Result)
	assert.Len(t, result.SubTasks, 2)
}

func TestWaitForCompletedPartialFailure(t *testing.T) {
	server, calls := taskStatusHandler(t,
		`{"data":[{"status":"Success","statusId":"success"},{"status":"Failure","statusId":"failure"}]}`,
	)

	client := testClient(t, server)
	result, err := client.Task("t5").WaitForCompleted(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Result)
	assert.Equal(t, 1, *calls, "a failed subtask is terminal, not a reason to keep polling")
}

func TestWaitForCompletedRecoversFromPollErrors(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/dataservice/device/action/status/", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"Server error"}}`))
			return
		}
		w.Write([]byte(`{"data":[{"status":"Success","statusId":"success"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	result, err := client.Task("t6").WaitForCompleted(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Result)
	assert.Equal(t, 2, calls)
}

func TestWaitForCompletedCustomStatuses(t *testing.T) {
	server, _ := taskStatusHandler(t,
		`{"data":[{"status":"Done","statusId":"done"}]}`,
	)

	client := testClient(t, server)
	result, err := client.Task("t7").WaitForCompleted(context.Background(),
		WaitSuccessStatuses([]OperationStatus{"Done"}, []OperationStatusID{"done"}))
	require.NoError(t, err)
	assert.True(t, result.Result)
}

func TestTaskStatusDecode(t *testing.T) {
	server, _ := taskStatusHandler(t,
		`{"validation":{"status":"Validation success","statusId":"validation_success"},
		  "data":[{"status":"In progress","statusId":"in_progress","action":"software_install",
		           "activity":["[9-Sep-2025] Device connected"],"currentActivity":"Downloading",
		           "uuid":"uuid-1","host-name":"vm1","site-id":"100"}],
		  "summary":{"total":1}}`,
	)

	client := testClient(t, server)
	data, err := client.Task("t8").Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, data.Validation)
	assert.Equal(t, OperationStatusValidationSuccess, data.Validation.Status)
	require.Len(t, data.Data, 1)
	assert.Equal(t, "software_install", data.Data[0].Action)
	assert.Equal(t, "100", data.Data[0].SiteID)
	assert.JSONEq(t, `{"total":1}`, string(data.Summary))
}

func TestActionConfigStringOrObject(t *testing.T) {
	var asString SubTaskData
	require.NoError(t, json.Unmarshal([]byte(`{"actionConfig":"{\"version\":\"20.12.2\"}"}`), &asString))
	assert.Equal(t, `{"version":"20.12.2"}`, asString.ActionConfig.String())

	var asObject SubTaskData
	require.NoError(t, json.Unmarshal([]byte(`{"actionConfig":{"version":"20.12.2"}}`), &asObject))
	assert.JSONEq(t, `{"version":"20.12.2"}`, asObject.ActionConfig.String())

	// re-serializing keeps the original form: objects stay objects,
	// strings stay strings
	fromObject, err := json.Marshal(asObject.ActionConfig)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"20.12.2"}`, string(fromObject))

	fromString, err := json.Marshal(asString.ActionConfig)
	require.NoError(t, err)
	assert.Equal(t, `"{\"version\":\"20.12.2\"}"`, string(fromString))
}

func TestTaskFromResponse(t *testing.T) {
	client, err := NewClient("10.0.0.1", Username("usr"), Password("pwd"))
	require.NoError(t, err)

	task, err := client.taskFromResponse(Res{RawBody: `{"id":"install-1"}`}, "software_install")
	require.NoError(t, err)
	assert.Equal(t, "install-1", task.ID)

	_, err = client.taskFromResponse(Res{RawBody: `{}`}, "software_install")
	var notRegistered *TaskNotRegisteredError
	require.ErrorAs(t, err, &notRegistered)
	assert.Equal(t, "software_install", notRegistered.Action)
}

func TestRunningTasks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dataservice/device/action/status/tasks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"runningTasks":[{"processId":"p1","action":"software_install","status":"In progress"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	tasks, err := client.RunningTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "p1", tasks[0].ProcessID)
}
