package etcdstore

import (
	"fmt"
	"path"
	"strings"

	"github.com/Sh00ty/cloud-nlb-reconciler/internal/models"
)

// Key layout, grounded on the teacher's own path-building idiom
// (internal/etcd/paths.go):
//
//	/nlb-registry/associations/<jobId>/<lbId>      -> JSON(associationDTO)
//	/nlb-registry/targets/<lbId>/<taskId>/<ip>     -> JSON(targetDTO)
//	/nlb-registry/reconciler/leader                -> election key
const (
	registryRoot     = "/nlb-registry"
	associationsRoot = registryRoot + "/associations"
	targetsRoot      = registryRoot + "/targets"

	// LeadershipKey is campaigned on by every reconciler replica so only
	// one drives ticks at a time.
	LeadershipKey = registryRoot + "/reconciler/leader"
)

func associationKey(key models.AssociationKey) string {
	return path.Join(associationsRoot, string(key.JobId), string(key.LoadBalancerId))
}

func associationsForJobPrefix(jobId models.JobId) string {
	return path.Join(associationsRoot, string(jobId)) + "/"
}

func parseAssociationKey(etcdKey string) (models.AssociationKey, error) {
	rest, ok := strings.CutPrefix(etcdKey, associationsRoot+"/")
	if !ok {
		return models.AssociationKey{}, fmt.Errorf("etcdstore: key %q outside associations root", etcdKey)
	}
	jobId, lbId, ok := strings.Cut(rest, "/")
	if !ok {
		return models.AssociationKey{}, fmt.Errorf("etcdstore: malformed association key %q", etcdKey)
	}
	return models.AssociationKey{JobId: models.JobId(jobId), LoadBalancerId: models.LoadBalancerId(lbId)}, nil
}

func targetsForLbPrefix(lbId models.LoadBalancerId) string {
	return path.Join(targetsRoot, string(lbId)) + "/"
}

func targetKey(id models.TargetIdentifier) string {
	return path.Join(targetsRoot, string(id.LoadBalancerId), string(id.TaskId), string(id.IpAddress))
}

func parseTargetKey(lbId models.LoadBalancerId, etcdKey string) (models.TargetIdentifier, error) {
	rest, ok := strings.CutPrefix(etcdKey, targetsForLbPrefix(lbId))
	if !ok {
		return models.TargetIdentifier{}, fmt.Errorf("etcdstore: key %q outside targets prefix for %s", etcdKey, lbId)
	}
	taskId, ip, ok := strings.Cut(rest, "/")
	if !ok {
		return models.TargetIdentifier{}, fmt.Errorf("etcdstore: malformed target key %q", etcdKey)
	}
	return models.TargetIdentifier{LoadBalancerId: lbId, TaskId: models.TaskId(taskId), IpAddress: models.IpAddress(ip)}, nil
}
