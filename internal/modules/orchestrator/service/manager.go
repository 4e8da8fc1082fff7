package service

import (
	"bytes"
	"context"
	"io"
	"strconv"

	fleetcfg "botfleet/internal/modules/config"

	botcfg "botfleet/internal/config"
	"botfleet/pkg/logger"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
)

const (
	namePrefix = "trading-bot-"

	memLimitBytes  = 256 * 1024 * 1024 // 256 МБ, swap запрещён
	cpuQuotaMicros = 50000             // 50% одного ядра (период 100000)

	staleStopSeconds = 5
	stopSeconds      = 10

	// logs() никогда не отдаёт больше, сколько бы ни запросили
	maxLogTail = 500
)

// DockerAPI — используемое подмножество docker-клиента; в тестах подменяется фейком.
type DockerAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerStatsOneShot(ctx context.Context, containerID string) (container.StatsResponseReader, error)
}

// Manager держит инвариант "один живой контейнер на бота" и все лимиты ресурсов.
type Manager struct {
	docker DockerAPI
	image  string
	net    string
	locks  *keyedMutex
}

func NewManager(cfg *fleetcfg.Config) (*Manager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "docker client")
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		return nil, errors.Wrap(err, "docker daemon недоступен")
	}
	return newManager(cli, cfg.BotImage, cfg.BotNetwork), nil
}

func newManager(api DockerAPI, image, net string) *Manager {
	return &Manager{
		docker: api,
		image:  image,
		net:    net,
		locks:  newKeyedMutex(),
	}
}

// ContainerName — детерминированное имя инстанса по идентичности бота.
func ContainerName(botID string) string { return namePrefix + botID }

// Start поднимает контейнер бота. Идемпотентно: старый контейнер с тем же
// именем сносится; два конкурентных Start одного бота сериализуются.
func (m *Manager) Start(ctx context.Context, botID string, payload *botcfg.Payload) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "orchestrator.start")
	defer span.Finish()
	span.SetTag("bot_id", botID)

	unlock := m.locks.Lock(botID)
	defer unlock()

	// preflight: без образа и контейнер не создаём
	if _, _, err := m.docker.ImageInspectWithRaw(ctx, m.image); err != nil {
		if errdefs.IsNotFound(err) {
			return "", errors.Errorf("образ %s не найден, его нужно собрать", m.image)
		}
		return "", errors.Wrap(err, "inspect image")
	}

	name := ContainerName(botID)
	m.removeStale(ctx, name)

	env, err := payload.Env()
	if err != nil {
		return "", err
	}

	cfg := &container.Config{
		Image: m.image,
		Env:   env,
		Labels: map[string]string{
			"app":        "trading-bot",
			"bot_id":     botID,
			"managed_by": "botfleet",
		},
	}
	hostCfg := &container.HostConfig{
		// переживает падение хоста/процесса, но не явный stop
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
		Resources: container.Resources{
			Memory:     memLimitBytes,
			MemorySwap: memLimitBytes,
			CPUQuota:   cpuQuotaMicros,
		},
		LogConfig: container.LogConfig{
			Type: "json-file",
			Config: map[string]string{
				"max-size": "10m",
				"max-file": "3",
			},
		},
	}
	var netCfg *network.NetworkingConfig
	if m.net != "" {
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{m.net: {}},
		}
	}

	resp, err := m.docker.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, name)
	if err != nil {
		return "", errors.Wrapf(err, "create container %s", name)
	}
	if err := m.docker.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", errors.Wrapf(err, "start container %s", name)
	}

	logger.Info("[ORCH] контейнер %s запущен, id=%s", name, resp.ID)
	return resp.ID, nil
}

// removeStale гасит контейнер с таким же именем, терпимо к "его уже нет".
func (m *Manager) removeStale(ctx context.Context, name string) {
	if _, err := m.docker.ContainerInspect(ctx, name); err != nil {
		return
	}
	logger.Info("[ORCH] найден старый контейнер %s, удаляю", name)

	timeout := staleStopSeconds
	if err := m.docker.ContainerStop(ctx, name, container.StopOptions{Timeout: &timeout}); err != nil && !errdefs.IsNotFound(err) {
		logger.Warn("[ORCH] stop старого %s: %v", name, err)
	}
	if err := m.docker.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
		logger.Warn("[ORCH] remove старого %s: %v", name, err)
	}
}

// Stop гасит и удаляет контейнер. "Уже нет" — тоже успех.
func (m *Manager) Stop(ctx context.Context, instanceID string) bool {
	span, ctx := opentracing.StartSpanFromContext(ctx, "orchestrator.stop")
	defer span.Finish()
	span.SetTag("instance_id", instanceID)

	timeout := stopSeconds
	if err := m.docker.ContainerStop(ctx, instanceID, container.StopOptions{Timeout: &timeout}); err != nil {
		if errdefs.IsNotFound(err) {
			logger.Warn("[ORCH] контейнер %s не найден (уже удалён)", instanceID)
			return true
		}
		logger.Error("[ORCH] stop %s: %v", instanceID, err)
		return false
	}
	if err := m.docker.ContainerRemove(ctx, instanceID, container.RemoveOptions{}); err != nil {
		if errdefs.IsNotFound(err) {
			return true
		}
		logger.Error("[ORCH] remove %s: %v", instanceID, err)
		return false
	}
	logger.Info("[ORCH] контейнер %s остановлен и удалён", instanceID)
	return true
}

// Logs возвращает склеенный stdout+stderr с таймстемпами.
// ok=false — контейнера нет (отличимо от пустого вывода).
func (m *Manager) Logs(ctx context.Context, instanceID string, tail int) (string, bool) {
	if tail <= 0 || tail > maxLogTail {
		tail = maxLogTail
	}

	rc, err := m.docker.ContainerLogs(ctx, instanceID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			logger.Warn("[ORCH] контейнер %s не найден", instanceID)
			return "", false
		}
		logger.Error("[ORCH] logs %s: %v", instanceID, err)
		return "", false
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		logger.Error("[ORCH] чтение логов %s: %v", instanceID, err)
		return "", false
	}

	// docker мультиплексирует потоки, склеиваем оба в один буфер;
	// контейнер с tty отдаёт сырой поток — тогда берём как есть
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, bytes.NewReader(data)); err != nil {
		buf.Reset()
		buf.Write(data)
	}
	return clampLines(buf.String(), maxLogTail), true
}

// IsRunning — сверка фактического состояния контейнера (self-healing статуса в БД бэкенда).
func (m *Manager) IsRunning(ctx context.Context, instanceID string) bool {
	info, err := m.docker.ContainerInspect(ctx, instanceID)
	if err != nil {
		if !errdefs.IsNotFound(err) {
			logger.Error("[ORCH] inspect %s: %v", instanceID, err)
		}
		return false
	}
	return info.State != nil && info.State.Running
}

func clampLines(s string, max int) string {
	if s == "" {
		return s
	}
	lines := 0
	if s[len(s)-1] != '\n' {
		lines = 1
	}
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			lines++
			if lines > max {
				return s[i+1:]
			}
		}
	}
	return s
}

var _ DockerAPI = (*client.Client)(nil)
